package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"myconnectionsvr/authdemo/internal/storage"
)

// StorageCredentialStore keeps the account list as one JSON array under
// AccountsKey. Every write re-serializes the whole list.
type StorageCredentialStore struct {
	kv  storage.Storage
	log *slog.Logger

	// mu serializes read-modify-write cycles within this process only.
	mu sync.Mutex
}

func NewStorageCredentialStore(kv storage.Storage, logger *slog.Logger) (*StorageCredentialStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageCredentialStore{kv: kv, log: logger}, nil
}

// ListAccounts treats a missing or unparseable entry as an empty collection.
func (s *StorageCredentialStore) ListAccounts(ctx context.Context) ([]Account, error) {
	raw, ok, err := s.kv.GetItem(ctx, AccountsKey)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if !ok {
		return []Account{}, nil
	}
	var accounts []Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		s.log.WarnContext(ctx, "ignoring malformed account list", "key", AccountsKey, "error", err)
		return []Account{}, nil
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

func (s *StorageCredentialStore) AppendAccount(ctx context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return err
	}
	accounts = append(accounts, account)
	return s.writeLocked(ctx, accounts)
}

func (s *StorageCredentialStore) FindByEmailAndPassword(ctx context.Context, email, password string) (Account, bool, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return Account{}, false, err
	}
	a, ok := findByEmailAndPassword(accounts, email, password)
	return a, ok, nil
}

func (s *StorageCredentialStore) EmailExists(ctx context.Context, email string) (bool, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return false, err
	}
	return emailExists(accounts, email), nil
}

// SeedDemoAccount writes DemoAccount when no account entry exists at all.
// A present but malformed entry is left alone.
func (s *StorageCredentialStore) SeedDemoAccount(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.kv.GetItem(ctx, AccountsKey)
	if err != nil {
		return false, fmt.Errorf("read accounts: %w", err)
	}
	if ok {
		return false, nil
	}
	if err := s.writeLocked(ctx, []Account{DemoAccount}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *StorageCredentialStore) writeLocked(ctx context.Context, accounts []Account) error {
	b, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := s.kv.SetItem(ctx, AccountsKey, string(b)); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}
