package dto

import (
	"time"

	"github.com/yukikurage/todo-api/internal/models"
)

// TodoDTO represents a todo in API responses
type TodoDTO struct {
	TodoID      string    `json:"todoId"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Image       *string   `json:"image"`
	Files       []string  `json:"files"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TodoListResponse represents a paginated list of todos
type TodoListResponse struct {
	Todos       []TodoDTO `json:"todos"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// MessageResponse carries a human readable acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ToTodoDTO converts a Todo model to TodoDTO
func ToTodoDTO(todo models.Todo) TodoDTO {
	tags := todo.Tags
	if tags == nil {
		tags = []string{}
	}
	files := todo.Files
	if files == nil {
		files = []string{}
	}

	return TodoDTO{
		TodoID:      todo.TodoID,
		UserID:      todo.UserID,
		Title:       todo.Title,
		Description: todo.Description,
		Tags:        tags,
		Image:       todo.Image,
		Files:       files,
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}
}

// ToTodoListResponse converts a page of todos to TodoListResponse
func ToTodoListResponse(todos []models.Todo, totalPages, currentPage int) TodoListResponse {
	items := make([]TodoDTO, len(todos))
	for i, todo := range todos {
		items[i] = ToTodoDTO(todo)
	}

	return TodoListResponse{
		Todos:       items,
		TotalPages:  totalPages,
		CurrentPage: currentPage,
	}
}
