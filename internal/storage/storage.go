// Package storage holds uploaded todo attachments and resolves them to URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrObjectNotFound is returned when a key has no stored object.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrInvalidKey is returned for keys that are empty or escape the store.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Store is a flat key/value object store.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// NewKey returns a fresh object key that keeps a sane extension of name.
func NewKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// ValidKey reports whether key is a single safe path segment. Dot-prefixed
// names are reserved for in-progress writes.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") {
		return false
	}
	if strings.ContainsAny(key, `/\`) {
		return false
	}
	return path.Clean(key) == key
}
