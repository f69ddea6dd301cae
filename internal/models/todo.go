package models

import "time"

// Todo is keyed by (UserID, TodoID). TodoID is also indexed on its own so a
// todo can be located without knowing its owner.
type Todo struct {
	UserID      string    `gorm:"primaryKey;type:varchar(36)" json:"userId" firestore:"userId"`
	TodoID      string    `gorm:"primaryKey;type:varchar(36);index:idx_todos_todo_id" json:"todoId" firestore:"todoId"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title" firestore:"title"`
	Description string    `gorm:"type:text;not null" json:"description" firestore:"description"`
	Tags        []string  `gorm:"type:text;serializer:json" json:"tags" firestore:"tags"`
	Image       *string   `gorm:"type:varchar(1024)" json:"image" firestore:"image"`
	Files       []string  `gorm:"type:text;serializer:json" json:"files" firestore:"files"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"`
}
