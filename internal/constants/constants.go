package constants

import "time"

// Context keys
const (
	ContextKeyUserID = "user_id"
)

// Authentication
const (
	MinPasswordLength = 6
	BcryptCost        = 10
	DefaultTokenTTL   = time.Hour
	BearerScheme      = "Bearer"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Uploads
const (
	UploadsPathPrefix     = "/uploads"
	FormFieldImage        = "image"
	FormFieldFiles        = "files"
	DefaultMaxUploadBytes = 32 << 20
)
