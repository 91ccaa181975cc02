package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"myconnectionsvr/authdemo/internal/storage"
)

// Observer is called after every session change with the new state.
type Observer func(user User, authenticated bool)

// SessionState holds the single active session and mirrors it to SessionKey.
type SessionState struct {
	kv  storage.Storage
	log *slog.Logger

	mu            sync.RWMutex
	user          User
	authenticated bool

	obsMu     sync.Mutex
	nextObsID int
	observers map[int]Observer
}

func NewSessionState(kv storage.Storage, logger *slog.Logger) (*SessionState, error) {
	if kv == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionState{
		kv:        kv,
		log:       logger,
		observers: make(map[int]Observer),
	}, nil
}

// Load rehydrates the persisted session. A corrupt entry is deleted and
// reported as no session; Load never fails.
func (s *SessionState) Load(ctx context.Context) (User, bool) {
	raw, ok, err := s.kv.GetItem(ctx, SessionKey)
	if err != nil {
		s.log.WarnContext(ctx, "read persisted session failed", "key", SessionKey, "error", err)
		return User{}, false
	}
	if !ok {
		return User{}, false
	}

	u, err := decodeSession(raw)
	if err != nil {
		s.log.WarnContext(ctx, "discarding corrupt persisted session", "key", SessionKey, "error", err)
		if err := s.kv.RemoveItem(ctx, SessionKey); err != nil {
			s.log.WarnContext(ctx, "remove corrupt session failed", "key", SessionKey, "error", err)
		}
		return User{}, false
	}

	s.mu.Lock()
	s.user = u
	s.authenticated = true
	s.mu.Unlock()
	return u, true
}

// decodeSession rejects JSON null and objects carrying none of the user fields.
func decodeSession(raw string) (User, error) {
	var u *User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, err
	}
	if u == nil || *u == (User{}) {
		return User{}, errors.New("empty session")
	}
	return *u, nil
}

func (s *SessionState) Set(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.SetItem(ctx, SessionKey, string(b)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.mu.Lock()
	s.user = u
	s.authenticated = true
	s.mu.Unlock()

	s.notify(u, true)
	return nil
}

// Clear always drops the in-memory session and notifies observers; the
// returned error only reports a failed delete of the persisted entry.
func (s *SessionState) Clear(ctx context.Context) error {
	err := s.kv.RemoveItem(ctx, SessionKey)

	s.mu.Lock()
	s.user = User{}
	s.authenticated = false
	s.mu.Unlock()

	s.notify(User{}, false)
	if err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *SessionState) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.authenticated
}

func (s *SessionState) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Subscribe registers fn for change notifications. The returned func removes it.
func (s *SessionState) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *SessionState) notify(u User, authenticated bool) {
	s.obsMu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(u, authenticated)
	}
}
