package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/todo-api/internal/models"
)

func createTodo(t *testing.T, svc *TodoService, userID, title string) *models.Todo {
	t.Helper()
	todo, err := svc.Create(context.Background(), CreateTodoInput{
		UserID:      userID,
		Title:       title,
		Description: "about " + title,
		Tags:        "home, work",
	})
	require.NoError(t, err)
	return todo
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitTags("a, b ,c"))
	assert.Equal(t, []string{"a", "b"}, SplitTags("a,,b,"))
	assert.Equal(t, []string{"a"}, SplitTags("a, a ,a"))
	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, []string{}, SplitTags(" , "))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(15, 10))
	assert.Equal(t, 3, TotalPages(21, 10))
}

func TestTodoService_CreateValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()

	_, err := env.todos.Create(ctx, CreateTodoInput{UserID: "u", Title: " ", Description: "d"})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = env.todos.Create(ctx, CreateTodoInput{UserID: "u", Title: "t", Description: ""})
	assert.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestTodoService_CreateSplitsTagsAndKeepsAssets(t *testing.T) {
	env := setupServiceTestEnv(t)
	image := "/uploads/pic.png"

	todo, err := env.todos.Create(context.Background(), CreateTodoInput{
		UserID:      "user-a",
		Title:       "Groceries",
		Description: "weekly shop",
		Tags:        "a, b ,c",
		Image:       &image,
		Files:       []string{"/uploads/1.txt", "/uploads/2.txt"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, todo.TodoID)
	assert.Equal(t, "user-a", todo.UserID)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, todo.Tags)
	assert.Equal(t, []string{"/uploads/1.txt", "/uploads/2.txt"}, todo.Files)
	require.NotNil(t, todo.Image)
	assert.Equal(t, image, *todo.Image)
}

func TestTodoService_ListPagination(t *testing.T) {
	env := setupServiceTestEnv(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	env.todos.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 0; i < 15; i++ {
		createTodo(t, env.todos, "user-a", fmt.Sprintf("todo %02d", i))
	}

	page, err := env.todos.List(context.Background(), ListTodosInput{UserID: "user-a", Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Todos, 5)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, "todo 10", page.Todos[0].Title)
}

func TestTodoService_ListDefaults(t *testing.T) {
	env := setupServiceTestEnv(t)
	for i := 0; i < 12; i++ {
		createTodo(t, env.todos, "user-a", fmt.Sprintf("todo %02d", i))
	}

	page, err := env.todos.List(context.Background(), ListTodosInput{UserID: "user-a", Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Todos, 10)
	assert.Equal(t, 2, page.TotalPages)
}

func TestTodoService_ListSearch(t *testing.T) {
	env := setupServiceTestEnv(t)
	createTodo(t, env.todos, "user-a", "Pay rent")
	createTodo(t, env.todos, "user-a", "Water plants")

	page, err := env.todos.List(context.Background(), ListTodosInput{UserID: "user-a", Page: 1, Limit: 10, SearchTerm: "RENT"})
	require.NoError(t, err)
	require.Len(t, page.Todos, 1)
	assert.Equal(t, "Pay rent", page.Todos[0].Title)
	assert.Equal(t, 1, page.TotalPages)
}

func TestTodoService_OwnerIsolation(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	todo := createTodo(t, env.todos, "user-a", "private")

	page, err := env.todos.List(ctx, ListTodosInput{UserID: "user-b", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Todos)

	_, err = env.todos.Get(ctx, "user-b", todo.TodoID)
	assert.ErrorIs(t, err, ErrTodoNotFound)

	title := "hijacked"
	_, err = env.todos.Update(ctx, "user-b", todo.TodoID, UpdateTodoInput{Title: &title})
	assert.ErrorIs(t, err, ErrTodoNotFound)

	assert.ErrorIs(t, env.todos.Delete(ctx, "user-b", todo.TodoID), ErrTodoNotFound)

	stored, err := env.todos.Get(ctx, "user-a", todo.TodoID)
	require.NoError(t, err)
	assert.Equal(t, "private", stored.Title)
}

func TestTodoService_UpdateOnlySuppliedFields(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	image := "/uploads/pic.png"

	original, err := env.todos.Create(ctx, CreateTodoInput{
		UserID:      "user-a",
		Title:       "old",
		Description: "keep me",
		Tags:        "x,y",
		Image:       &image,
		Files:       []string{"/uploads/f.txt"},
	})
	require.NoError(t, err)

	title := "new"
	updated, err := env.todos.Update(ctx, "user-a", original.TodoID, UpdateTodoInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, []string{"x", "y"}, updated.Tags)
	require.NotNil(t, updated.Image)
	assert.Equal(t, image, *updated.Image)
	assert.Equal(t, []string{"/uploads/f.txt"}, updated.Files)
}

func TestTodoService_UpdateValidation(t *testing.T) {
	env := setupServiceTestEnv(t)
	todo := createTodo(t, env.todos, "user-a", "task")

	empty := "  "
	_, err := env.todos.Update(context.Background(), "user-a", todo.TodoID, UpdateTodoInput{Title: &empty})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = env.todos.Update(context.Background(), "user-a", todo.TodoID, UpdateTodoInput{Description: &empty})
	assert.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestTodoService_UpdateTagsAndFiles(t *testing.T) {
	env := setupServiceTestEnv(t)
	todo := createTodo(t, env.todos, "user-a", "task")

	tags := ""
	updated, err := env.todos.Update(context.Background(), "user-a", todo.TodoID, UpdateTodoInput{
		Tags:  &tags,
		Files: []string{"/uploads/new.txt"},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)
	assert.Equal(t, []string{"/uploads/new.txt"}, updated.Files)
	assert.Equal(t, "task", updated.Title)
}

func TestTodoService_UpdateMissing(t *testing.T) {
	env := setupServiceTestEnv(t)

	title := "x"
	_, err := env.todos.Update(context.Background(), "user-a", "missing", UpdateTodoInput{Title: &title})
	assert.ErrorIs(t, err, ErrTodoNotFound)
}

func TestTodoService_DeleteIsIdempotent(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	todo := createTodo(t, env.todos, "user-a", "done")

	require.NoError(t, env.todos.Delete(ctx, "user-a", todo.TodoID))
	require.NoError(t, env.todos.Delete(ctx, "user-a", todo.TodoID))
	require.NoError(t, env.todos.Delete(ctx, "user-a", "never-existed"))

	_, err := env.todos.Get(ctx, "user-a", todo.TodoID)
	assert.ErrorIs(t, err, ErrTodoNotFound)
}
