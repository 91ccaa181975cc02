package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"
)

const (
	minPasswordLength = 6

	// DefaultLatency is the artificial delay applied to Login and Register.
	DefaultLatency = 500 * time.Millisecond
)

// Service implements login, registration and logout on top of a credential
// store and the session state. It is the only thing consumers talk to.
type Service struct {
	credentials CredentialStore
	session     *SessionState
	latency     time.Duration
	nowFunc     func() time.Time
	log         *slog.Logger

	// regMu makes the duplicate-email check and the append one step.
	regMu sync.Mutex
}

type ServiceConfig struct {
	// Latency simulates a network round trip before Login and Register run.
	Latency time.Duration
	Logger  *slog.Logger
}

func NewService(credentials CredentialStore, session *SessionState, cfg ServiceConfig) (*Service, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session state is required")
	}
	if cfg.Latency < 0 {
		return nil, fmt.Errorf("latency must be >= 0")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		credentials: credentials,
		session:     session,
		latency:     cfg.Latency,
		nowFunc:     time.Now,
		log:         logger,
	}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	account, ok, err := s.credentials.FindByEmailAndPassword(ctx, email, password)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !ok {
		s.log.InfoContext(ctx, "login rejected", "email", email)
		return ErrInvalidCredentials
	}

	if err := s.session.Set(ctx, account.User()); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "login succeeded", "user_id", account.ID, "email", account.Email)
	return nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := validateRegistration(username, email, password); err != nil {
		return err
	}

	s.regMu.Lock()
	exists, err := s.credentials.EmailExists(ctx, email)
	if err != nil {
		s.regMu.Unlock()
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.regMu.Unlock()
		s.log.InfoContext(ctx, "registration rejected", "email", email, "reason", "duplicate email")
		return ErrDuplicateEmail
	}

	account := Account{
		ID:       strconv.FormatInt(s.nowFunc().UnixMilli(), 10),
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := s.credentials.AppendAccount(ctx, account); err != nil {
		s.regMu.Unlock()
		return fmt.Errorf("store account: %w", err)
	}
	s.regMu.Unlock()
	s.log.InfoContext(ctx, "account registered", "user_id", account.ID, "email", account.Email)

	return s.session.Set(ctx, account.User())
}

// Logout ends the session. It cannot fail from the caller's point of view;
// a storage error leaves a stale entry behind and is only logged.
func (s *Service) Logout(ctx context.Context) {
	u, _ := s.session.Current()
	if err := s.session.Clear(ctx); err != nil {
		s.log.WarnContext(ctx, "logout could not remove persisted session", "error", err)
	}
	s.log.InfoContext(ctx, "logged out", "user_id", u.ID)
}

func (s *Service) User() (User, bool) {
	return s.session.Current()
}

func (s *Service) IsAuthenticated() bool {
	return s.session.IsAuthenticated()
}

func (s *Service) Subscribe(fn Observer) (unsubscribe func()) {
	return s.session.Subscribe(fn)
}

func (s *Service) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return ErrFieldsRequired
	}
	if utf16Len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// utf16Len counts UTF-16 code units, the unit browsers use for string length.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
