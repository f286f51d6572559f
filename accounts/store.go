// Package accounts manages the persisted account configuration records.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
)

// ErrNotFound reports that no account carries the requested state prefix.
var ErrNotFound = errors.New("account not found")

// Store manages the accounts JSON document: a single array of account
// records keyed by state_prefix. Access is mutex-guarded and writes are
// atomic, matching the per-account state stores.
type Store struct {
	path     string
	mu       sync.Mutex
	validate *validator.Validate
}

// NewStore creates an account store backed by the given JSON file.
func NewStore(path string) *Store {
	return &Store{
		path:     path,
		validate: validator.New(),
	}
}

// List returns all configured accounts. A missing file is an empty list.
func (s *Store) List() ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]model.Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var accts []model.Account
	if err := json.Unmarshal(data, &accts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	return accts, nil
}

func (s *Store) save(accts []model.Account) error {
	data, err := json.MarshalIndent(accts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create accounts directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".accounts-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get returns the account with the given state prefix.
func (s *Store) Get(prefix string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.load()
	if err != nil {
		return model.Account{}, err
	}
	for _, a := range accts {
		if a.StatePrefix == prefix {
			return a, nil
		}
	}
	return model.Account{}, ErrNotFound
}

// Upsert validates and inserts or replaces an account record, matching on
// state_prefix.
func (s *Store) Upsert(acct model.Account) error {
	if err := s.validate.Struct(acct); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, a := range accts {
		if a.StatePrefix == acct.StatePrefix {
			accts[i] = acct
			replaced = true
			break
		}
	}
	if !replaced {
		accts = append(accts, acct)
	}

	if err := s.save(accts); err != nil {
		return err
	}
	log.Info().Str("account", acct.StatePrefix).Bool("replaced", replaced).Msg("Account saved")
	return nil
}

// Delete removes the account with the given state prefix.
func (s *Store) Delete(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.load()
	if err != nil {
		return err
	}

	kept := accts[:0]
	found := false
	for _, a := range accts {
		if a.StatePrefix == prefix {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrNotFound
	}
	return s.save(kept)
}

// SetTokenFile writes the normalized token path back to the account record,
// so later runs read the corrected location.
func (s *Store) SetTokenFile(prefix, tokenPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.load()
	if err != nil {
		return err
	}
	for i, a := range accts {
		if a.StatePrefix == prefix {
			accts[i].TokenFile = tokenPath
			return s.save(accts)
		}
	}
	return ErrNotFound
}
