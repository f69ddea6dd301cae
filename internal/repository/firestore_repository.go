package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yukikurage/todo-api/internal/models"
)

const (
	usersCollection     = "users"
	usernamesCollection = "usernames"
	todosCollection     = "todos"
)

// usernameDocID maps a username to a valid document id. Usernames may
// contain '/' or be "." which Firestore ids cannot.
func usernameDocID(username string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(username))
}

// FirestoreUserRepository stores users as documents keyed by userId
type FirestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a Firestore-backed UserRepository
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &FirestoreUserRepository{client: client}
}

// Create creates a new user document together with a usernames/<id> claim
// document in one transaction, so a username can only be taken once.
func (r *FirestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	claim := r.client.Collection(usernamesCollection).Doc(usernameDocID(user.Username))
	userDoc := r.client.Collection(usersCollection).Doc(user.UserID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(claim, map[string]interface{}{"userId": user.UserID}); err != nil {
			return err
		}
		return tx.Create(userDoc, user)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByUsername returns the first user document with a matching username
func (r *FirestoreUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).
		Where("username", "==", username).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// FirestoreTodoRepository stores todos as documents keyed by "<userId>_<todoId>"
type FirestoreTodoRepository struct {
	client *firestore.Client
}

// NewFirestoreTodoRepository creates a Firestore-backed TodoRepository
func NewFirestoreTodoRepository(client *firestore.Client) TodoRepository {
	return &FirestoreTodoRepository{client: client}
}

func (r *FirestoreTodoRepository) doc(userID, todoID string) *firestore.DocumentRef {
	return r.client.Collection(todosCollection).Doc(userID + "_" + todoID)
}

// Create creates a new todo document
func (r *FirestoreTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	_, err := r.doc(todo.UserID, todo.TodoID).Create(ctx, todo)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// FindByID finds a todo by its id regardless of owner
func (r *FirestoreTodoRepository) FindByID(ctx context.Context, todoID string) (*models.Todo, error) {
	iter := r.client.Collection(todosCollection).
		Where("todoId", "==", todoID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find todo: %w", err)
	}

	var todo models.Todo
	if err := doc.DataTo(&todo); err != nil {
		return nil, fmt.Errorf("decode todo: %w", err)
	}
	return &todo, nil
}

// ListByUser loads all of the user's todos and filters and pages them in
// memory. Firestore has no substring search.
func (r *FirestoreTodoRepository) ListByUser(ctx context.Context, filter TodoFilter) ([]models.Todo, int64, error) {
	iter := r.client.Collection(todosCollection).
		Where("userId", "==", filter.UserID).
		Documents(ctx)
	defer iter.Stop()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []models.Todo
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("iterate todos: %w", err)
		}

		var todo models.Todo
		if err := doc.DataTo(&todo); err != nil {
			return nil, 0, fmt.Errorf("decode todo: %w", err)
		}
		if term != "" && !matchesSearch(todo, term) {
			continue
		}
		matched = append(matched, todo)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].TodoID < matched[j].TodoID
	})

	total := int64(len(matched))
	if filter.Limit <= 0 {
		return append([]models.Todo{}, matched...), total, nil
	}

	start := filter.Offset()
	if start >= len(matched) {
		return []models.Todo{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return append([]models.Todo{}, matched[start:end]...), total, nil
}

// UpdateByID writes only the patched fields and returns the stored document
func (r *FirestoreTodoRepository) UpdateByID(ctx context.Context, todoID, userID string, patch TodoPatch) (*models.Todo, error) {
	ref := r.doc(userID, todoID)

	if !patch.IsEmpty() {
		if _, err := ref.Update(ctx, firestoreUpdates(patch)); err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("update todo: %w", err)
		}
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reload todo: %w", err)
	}

	var todo models.Todo
	if err := snap.DataTo(&todo); err != nil {
		return nil, fmt.Errorf("decode todo: %w", err)
	}
	return &todo, nil
}

// DeleteByID deletes a todo document. Firestore deletes are idempotent.
func (r *FirestoreTodoRepository) DeleteByID(ctx context.Context, todoID, userID string) error {
	if _, err := r.doc(userID, todoID).Delete(ctx); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func firestoreUpdates(patch TodoPatch) []firestore.Update {
	updates := make([]firestore.Update, 0, 6)
	if patch.Title != nil {
		updates = append(updates, firestore.Update{Path: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *patch.Description})
	}
	if patch.Tags != nil {
		updates = append(updates, firestore.Update{Path: "tags", Value: *patch.Tags})
	}
	if patch.Image != nil {
		updates = append(updates, firestore.Update{Path: "image", Value: *patch.Image})
	}
	if patch.Files != nil {
		updates = append(updates, firestore.Update{Path: "files", Value: *patch.Files})
	}
	return append(updates, firestore.Update{Path: "updatedAt", Value: time.Now()})
}

func matchesSearch(todo models.Todo, term string) bool {
	return strings.Contains(strings.ToLower(todo.Title), term) ||
		strings.Contains(strings.ToLower(todo.Description), term)
}
