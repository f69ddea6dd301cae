package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/todo-api/internal/database"
	"github.com/yukikurage/todo-api/internal/models"
	"gorm.io/gorm"
)

// GormTodoRepository is a GORM implementation of TodoRepository
type GormTodoRepository struct {
	db *gorm.DB
}

// NewTodoRepository creates a new TodoRepository
func NewTodoRepository(db *gorm.DB) TodoRepository {
	return &GormTodoRepository{db: db}
}

// Create creates a new todo
func (r *GormTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// FindByID finds a todo by its id
func (r *GormTodoRepository) FindByID(ctx context.Context, todoID string) (*models.Todo, error) {
	var todo models.Todo
	if err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).First(&todo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &todo, nil
}

// ListByUser retrieves a user's todos with search and pagination
func (r *GormTodoRepository) ListByUser(ctx context.Context, filter TodoFilter) ([]models.Todo, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Todo{}).
		Where("user_id = ?", filter.UserID)

	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", like, like)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count todos: %w", err)
	}

	todos := []models.Todo{}
	if err := query.
		Order("created_at ASC").
		Order("todo_id ASC").
		Scopes(database.Paginate(filter.Offset(), filter.Limit)).
		Find(&todos).Error; err != nil {
		return nil, 0, fmt.Errorf("list todos: %w", err)
	}

	return todos, total, nil
}

// UpdateByID applies a partial update to the todo stored under (userID, todoID)
func (r *GormTodoRepository) UpdateByID(ctx context.Context, todoID, userID string, patch TodoPatch) (*models.Todo, error) {
	var todo models.Todo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND todo_id = ?", userID, todoID).First(&todo).Error; err != nil {
			return err
		}

		if patch.IsEmpty() {
			return nil
		}

		patch.Apply(&todo)
		todo.UpdatedAt = time.Now()

		return tx.Model(&models.Todo{UserID: userID, TodoID: todoID}).
			Select(patchColumns(patch)).
			Updates(&todo).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update todo: %w", err)
	}

	return &todo, nil
}

// DeleteByID deletes a todo
func (r *GormTodoRepository) DeleteByID(ctx context.Context, todoID, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND todo_id = ?", userID, todoID).
		Delete(&models.Todo{}).Error; err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

// patchColumns lists the columns touched by patch, plus updated_at
func patchColumns(patch TodoPatch) []string {
	columns := make([]string, 0, 6)
	if patch.Title != nil {
		columns = append(columns, "title")
	}
	if patch.Description != nil {
		columns = append(columns, "description")
	}
	if patch.Tags != nil {
		columns = append(columns, "tags")
	}
	if patch.Image != nil {
		columns = append(columns, "image")
	}
	if patch.Files != nil {
		columns = append(columns, "files")
	}
	return append(columns, "updated_at")
}

// escapeLike escapes LIKE wildcards using '!' as the escape character
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
