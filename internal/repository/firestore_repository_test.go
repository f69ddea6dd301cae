package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/todo-api/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// newEmulatorClient connects to the Firestore emulator or skips the test.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "todo-api-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreUserRepository(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewFirestoreUserRepository(client)
	ctx := context.Background()

	username := "user-" + uuid.NewString()
	user := &models.User{UserID: uuid.NewString(), Username: username, PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, found.UserID)

	assert.ErrorIs(t, repo.Create(ctx, user), ErrDuplicate)

	_, err = repo.FindByUsername(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirestoreUserRepository_UsernameClaimedOnce(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewFirestoreUserRepository(client)
	ctx := context.Background()

	username := "racer/" + uuid.NewString()
	first := &models.User{UserID: uuid.NewString(), Username: username, PasswordHash: "hash"}
	second := &models.User{UserID: uuid.NewString(), Username: username, PasswordHash: "hash"}

	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicate)

	_, err := client.Collection(usersCollection).Doc(second.UserID).Get(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUsernameDocID(t *testing.T) {
	assert.NotContains(t, usernameDocID("a/b"), "/")
	assert.NotEqual(t, ".", usernameDocID("."))
	assert.NotEqual(t, usernameDocID("alice"), usernameDocID("Alice"))
}

func TestFirestoreTodoRepository(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewFirestoreTodoRepository(client)
	ctx := context.Background()

	userID := uuid.NewString()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		require.NoError(t, repo.Create(ctx, &models.Todo{
			UserID:      userID,
			TodoID:      fmt.Sprintf("%s-%02d", userID, i),
			Title:       fmt.Sprintf("todo %02d", i),
			Description: "desc",
			Tags:        []string{"a"},
			Files:       []string{},
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, total, err := repo.ListByUser(ctx, TodoFilter{UserID: userID, Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, page, 5)

	_, total, err = repo.ListByUser(ctx, TodoFilter{UserID: userID, Search: "TODO 03", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	firstID := fmt.Sprintf("%s-%02d", userID, 0)
	title := "renamed"
	updated, err := repo.UpdateByID(ctx, firstID, userID, TodoPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "desc", updated.Description)

	_, err = repo.UpdateByID(ctx, firstID, uuid.NewString(), TodoPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := repo.FindByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, userID, found.UserID)

	require.NoError(t, repo.DeleteByID(ctx, firstID, userID))
	require.NoError(t, repo.DeleteByID(ctx, firstID, userID))
	_, err = repo.FindByID(ctx, firstID)
	assert.ErrorIs(t, err, ErrNotFound)
}
