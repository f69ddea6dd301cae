// Package client implements the todo API client application: the session
// context, a typed HTTP client, the auth state machine and the todo view.
package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Session is the state kept between runs: the bearer token and the user it
// was issued for.
type Session struct {
	Token  string `toml:"token"`
	UserID string `toml:"user_id"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}

// SessionStore persists a Session.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// MemorySessionStore keeps the session in memory only.
type MemorySessionStore struct {
	mu      sync.Mutex
	session Session
}

func (m *MemorySessionStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *MemorySessionStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *MemorySessionStore) Clear() error {
	return m.Save(Session{})
}

// FileSessionStore keeps the session in a TOML file readable only by the
// current user.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore returns a store backed by path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load returns an empty session when the file does not exist.
func (f *FileSessionStore) Load() (Session, error) {
	var s Session
	if _, err := toml.DecodeFile(f.path, &s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("reading session file: %w", err)
	}
	return s, nil
}

func (f *FileSessionStore) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Clear removes the session file. A missing file is not an error.
func (f *FileSessionStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// SessionContext is the single holder of the current session. It is begun at
// login and ended at logout, and every API call reads the token from it.
type SessionContext struct {
	mu      sync.RWMutex
	store   SessionStore
	current Session
}

// NewSessionContext restores any session saved in store.
func NewSessionContext(store SessionStore) (*SessionContext, error) {
	s, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &SessionContext{store: store, current: s}, nil
}

// Begin stores a new session.
func (c *SessionContext) Begin(token, userID string) error {
	s := Session{Token: token, UserID: userID}
	if err := c.store.Save(s); err != nil {
		return err
	}

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	return nil
}

// End forgets the session. The in-memory copy is cleared even if the store
// fails.
func (c *SessionContext) End() error {
	c.mu.Lock()
	c.current = Session{}
	c.mu.Unlock()
	return c.store.Clear()
}

// Current returns the session and whether it is usable.
func (c *SessionContext) Current() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current.Valid()
}

// Token returns the bearer token, or "" when logged out.
func (c *SessionContext) Token() string {
	s, _ := c.Current()
	return s.Token
}
