package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/todo-api/internal/constants"
	"github.com/yukikurage/todo-api/internal/models"
	"github.com/yukikurage/todo-api/internal/repository"
)

var (
	ErrTodoNotFound        = errors.New("todo not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
)

// TodoService handles owner-scoped todo operations.
type TodoService struct {
	todoRepo repository.TodoRepository
	now      func() time.Time
}

// NewTodoService creates a new TodoService
func NewTodoService(todoRepo repository.TodoRepository) *TodoService {
	return &TodoService{
		todoRepo: todoRepo,
		now:      time.Now,
	}
}

// ListTodosInput represents the filters for listing todos
type ListTodosInput struct {
	UserID     string
	Page       int
	Limit      int
	SearchTerm string
}

// TodoPage is one page of a user's todos
type TodoPage struct {
	Todos       []models.Todo
	TotalPages  int
	CurrentPage int
	TotalCount  int64
}

// CreateTodoInput represents input for creating a todo. Image and Files are
// URLs of assets that were already stored.
type CreateTodoInput struct {
	UserID      string
	Title       string
	Description string
	Tags        string
	Image       *string
	Files       []string
}

// UpdateTodoInput represents a partial update. Nil fields are left unchanged.
type UpdateTodoInput struct {
	Title       *string
	Description *string
	Tags        *string
	Image       *string
	Files       []string
}

// List returns one page of the user's todos
func (s *TodoService) List(ctx context.Context, input ListTodosInput) (*TodoPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	todos, total, err := s.todoRepo.ListByUser(ctx, repository.TodoFilter{
		UserID: input.UserID,
		Search: input.SearchTerm,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}

	return &TodoPage{
		Todos:       todos,
		TotalPages:  TotalPages(total, limit),
		CurrentPage: page,
		TotalCount:  total,
	}, nil
}

// Get returns a todo owned by userID
func (s *TodoService) Get(ctx context.Context, userID, todoID string) (*models.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	if todo.UserID != userID {
		return nil, ErrTodoNotFound
	}
	return todo, nil
}

// Create validates input and stores a new todo with a fresh id
func (s *TodoService) Create(ctx context.Context, input CreateTodoInput) (*models.Todo, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}

	files := input.Files
	if files == nil {
		files = []string{}
	}

	now := s.now()
	todo := &models.Todo{
		UserID:      input.UserID,
		TodoID:      uuid.NewString(),
		Title:       title,
		Description: description,
		Tags:        SplitTags(input.Tags),
		Image:       input.Image,
		Files:       files,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	return todo, nil
}

// Update applies the supplied fields to a todo owned by userID
func (s *TodoService) Update(ctx context.Context, userID, todoID string, input UpdateTodoInput) (*models.Todo, error) {
	patch := repository.TodoPatch{Image: input.Image}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		patch.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, ErrDescriptionRequired
		}
		patch.Description = &description
	}
	if input.Tags != nil {
		tags := SplitTags(*input.Tags)
		patch.Tags = &tags
	}
	if input.Files != nil {
		files := input.Files
		patch.Files = &files
	}

	todo, err := s.todoRepo.UpdateByID(ctx, todoID, userID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	return todo, nil
}

// Delete removes a todo owned by userID. A todo that exists under another
// owner is reported as not found; an unknown id succeeds.
func (s *TodoService) Delete(ctx context.Context, userID, todoID string) error {
	existing, err := s.todoRepo.FindByID(ctx, todoID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to find todo: %w", err)
	case existing.UserID != userID:
		return ErrTodoNotFound
	}

	if err := s.todoRepo.DeleteByID(ctx, todoID, userID); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	return nil
}

// SplitTags turns "a, b ,c" into [a b c], dropping empty and repeated tags
func SplitTags(csv string) []string {
	tags := []string{}
	seen := make(map[string]struct{})

	for _, raw := range strings.Split(csv, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if _, exists := seen[tag]; exists {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}

// TotalPages returns ceil(total / limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
