package models

import "time"

type User struct {
	UserID       string    `gorm:"primaryKey;type:varchar(36)" json:"userId" firestore:"userId"`
	Username     string    `gorm:"type:varchar(255);uniqueIndex:idx_users_username;not null" json:"username" firestore:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-" firestore:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}
