package auth

import (
	"context"
	"sync"
)

// CredentialStore is the durable collection of registered accounts. Emails are
// unique across the collection; the store itself does not enforce it, Service does.
type CredentialStore interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	AppendAccount(ctx context.Context, account Account) error
	FindByEmailAndPassword(ctx context.Context, email, password string) (Account, bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type InMemoryCredentialStore struct {
	mu       sync.RWMutex
	accounts []Account
}

func NewInMemoryCredentialStore(seed ...Account) *InMemoryCredentialStore {
	return &InMemoryCredentialStore{accounts: append([]Account(nil), seed...)}
}

func (s *InMemoryCredentialStore) ListAccounts(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account{}, s.accounts...), nil
}

func (s *InMemoryCredentialStore) AppendAccount(ctx context.Context, account Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, account)
	return nil
}

func (s *InMemoryCredentialStore) FindByEmailAndPassword(ctx context.Context, email, password string) (Account, bool, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return Account{}, false, err
	}
	a, ok := findByEmailAndPassword(accounts, email, password)
	return a, ok, nil
}

func (s *InMemoryCredentialStore) EmailExists(ctx context.Context, email string) (bool, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return false, err
	}
	return emailExists(accounts, email), nil
}

func findByEmailAndPassword(accounts []Account, email, password string) (Account, bool) {
	for _, a := range accounts {
		if a.Email == email && a.Password == password {
			return a, true
		}
	}
	return Account{}, false
}

func emailExists(accounts []Account, email string) bool {
	for _, a := range accounts {
		if a.Email == email {
			return true
		}
	}
	return false
}
