// Package session holds the authenticated identity (who is acting) and its
// persistence lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finsync/internal/core"
	"finsync/internal/log"
)

// Keys under which the session is persisted.
const (
	KeyToken     = "token"
	KeyAccountID = "accountId"
	KeyUsername  = "username"
)

// DefaultUsername is used when a restored session has no stored username.
const DefaultUsername = "User"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMissingIdentity  = errors.New("token and account id are required")
)

// SecureStore is durable storage for credentials. A missing key is not an
// error: GetItem reports it with ok == false.
type SecureStore interface {
	SetItem(ctx context.Context, key, value string) error
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	DeleteItem(ctx context.Context, key string) error
}

type EventType int

const (
	EventLogin EventType = iota + 1
	EventRestored
	EventLogout
)

func (t EventType) String() string {
	switch t {
	case EventLogin:
		return "login"
	case EventRestored:
		return "restored"
	case EventLogout:
		return "logout"
	}
	return "unknown"
}

// Event is published after every session change.
type Event struct {
	Type     EventType
	Session  core.Session
	Previous core.Session
}

// Store is the single source of truth for the acting account.
type Store struct {
	secure SecureStore
	logger *log.Logger

	mu        sync.RWMutex
	current   core.Session
	listeners map[int]func(Event)
	nextID    int
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentSession) }
}

func New(secure SecureStore, opts ...Option) *Store {
	s := &Store{
		secure:    secure,
		logger:    log.Discard(),
		listeners: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAuth persists the identity and only then makes it current.
func (s *Store) SetAuth(ctx context.Context, token, accountID, username string) error {
	if token == "" || accountID == "" {
		return ErrMissingIdentity
	}
	written := make([]string, 0, 3)
	for _, kv := range [][2]string{{KeyToken, token}, {KeyAccountID, accountID}, {KeyUsername, username}} {
		if err := s.secure.SetItem(ctx, kv[0], kv[1]); err != nil {
			// Do not leave a half-written identity behind.
			for _, k := range written {
				_ = s.secure.DeleteItem(ctx, k)
			}
			return fmt.Errorf("persist %s: %w", kv[0], err)
		}
		written = append(written, kv[0])
	}

	next := core.Session{Token: token, AccountID: accountID, Username: username}
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session established", log.FieldOperation, log.OpLogin, log.FieldAccountID, accountID)
	s.publish(Event{Type: EventLogin, Session: next, Previous: prev})
	return nil
}

// Logout clears storage and memory. Memory is cleared even when storage
// deletion fails; the storage error is returned.
func (s *Store) Logout(ctx context.Context) error {
	var errs []error
	for _, k := range []string{KeyToken, KeyAccountID, KeyUsername} {
		if err := s.secure.DeleteItem(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}

	s.mu.Lock()
	prev := s.current
	s.current = core.Session{}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session cleared", log.FieldOperation, log.OpLogout, log.FieldAccountID, prev.AccountID)
	s.publish(Event{Type: EventLogout, Previous: prev})
	return errors.Join(errs...)
}

// LoadStorage restores a persisted session. Absent credentials leave the
// store unauthenticated without error.
func (s *Store) LoadStorage(ctx context.Context) error {
	token, okToken, err := s.secure.GetItem(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	accountID, okAccount, err := s.secure.GetItem(ctx, KeyAccountID)
	if err != nil {
		return fmt.Errorf("read account id: %w", err)
	}
	if !okToken || !okAccount || token == "" || accountID == "" {
		s.logger.DebugContext(ctx, "No stored session")
		return nil
	}
	username, okUser, err := s.secure.GetItem(ctx, KeyUsername)
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	if !okUser || username == "" {
		username = DefaultUsername
	}

	next := core.Session{Token: token, AccountID: accountID, Username: username}
	s.mu.Lock()
	prev := s.current
	s.current = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session restored", log.FieldAccountID, accountID)
	s.publish(Event{Type: EventRestored, Session: next, Previous: prev})
	return nil
}

func (s *Store) Current() core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the current bearer token, empty when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// AccountID returns the tenancy scope of every repository call.
func (s *Store) AccountID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Token == "" {
		return "", ErrNotAuthenticated
	}
	return s.current.AccountID, nil
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Subscribe registers fn for every subsequent Event. Listeners run on the
// goroutine that changed the session, after the change is applied.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) publish(e Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}
