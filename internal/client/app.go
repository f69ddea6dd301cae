package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotAuthenticated is returned by App operations that need a session.
var ErrNotAuthenticated = errors.New("not logged in")

// State is the root state of the application.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// App is the root of the client application. It moves between the auth view
// (Unauthenticated) and the todo view (Authenticated).
type App struct {
	client  *Client
	session *SessionContext

	mu    sync.Mutex
	state State
}

// NewApp creates an App in the Unauthenticated state. Call Start to pick up
// a stored session.
func NewApp(client *Client, session *SessionContext) *App {
	return &App{client: client, session: session}
}

// Start enters Authenticated when the session context already holds a token.
func (a *App) Start() State {
	if _, ok := a.session.Current(); ok {
		a.setState(StateAuthenticated)
	} else {
		a.setState(StateUnauthenticated)
	}
	return a.State()
}

// State returns the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Session returns the current session, if any.
func (a *App) Session() (Session, bool) {
	return a.session.Current()
}

// Client returns the underlying API client.
func (a *App) Client() *Client {
	return a.client
}

// Login verifies credentials and begins a session.
func (a *App) Login(ctx context.Context, username, password string) error {
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.session.Begin(resp.Token, resp.UserID); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	a.setState(StateAuthenticated)
	return nil
}

// Register creates the account and then logs in with the same credentials.
func (a *App) Register(ctx context.Context, username, password string) error {
	if err := a.client.Register(ctx, username, password); err != nil {
		return err
	}
	return a.Login(ctx, username, password)
}

// Logout ends the session and returns to the auth view.
func (a *App) Logout() error {
	a.setState(StateUnauthenticated)
	return a.session.End()
}

// TodoView returns a view over the current user's todos.
func (a *App) TodoView(limit int) (*TodoView, error) {
	if a.State() != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}
	return newTodoView(a, limit), nil
}

// observe logs out when err says the token is no longer accepted.
func (a *App) observe(err error) error {
	if err != nil && IsUnauthorized(err) {
		if endErr := a.Logout(); endErr != nil {
			return errors.Join(err, endErr)
		}
	}
	return err
}

func (a *App) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}
