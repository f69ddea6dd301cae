package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/todo-api/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)

// UserRepository defines the interface for credential storage
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *models.User) error

	// FindByUsername finds a user through the username index
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// TodoRepository defines the interface for todo storage
type TodoRepository interface {
	// Create inserts a new todo keyed by (UserID, TodoID)
	Create(ctx context.Context, todo *models.Todo) error

	// FindByID finds a todo by its id regardless of owner
	FindByID(ctx context.Context, todoID string) (*models.Todo, error)

	// ListByUser returns one page of a user's todos and the total match count
	ListByUser(ctx context.Context, filter TodoFilter) ([]models.Todo, int64, error)

	// UpdateByID applies the non-nil fields of patch and returns the stored todo
	UpdateByID(ctx context.Context, todoID, userID string, patch TodoPatch) (*models.Todo, error)

	// DeleteByID removes a todo. Deleting a missing todo is not an error.
	DeleteByID(ctx context.Context, todoID, userID string) error
}

// TodoFilter holds the options for listing todos
type TodoFilter struct {
	UserID string
	Search string
	Page   int
	Limit  int
}

// Offset returns the number of records to skip for the requested page.
func (f TodoFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// TodoPatch carries a partial update. Nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
	Image       *string
	Files       *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.Image == nil && p.Files == nil
}

// Apply copies the patch onto todo.
func (p TodoPatch) Apply(todo *models.Todo) {
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.Description != nil {
		todo.Description = *p.Description
	}
	if p.Tags != nil {
		todo.Tags = *p.Tags
	}
	if p.Image != nil {
		image := *p.Image
		todo.Image = &image
	}
	if p.Files != nil {
		todo.Files = *p.Files
	}
}
