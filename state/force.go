package state

import (
	"errors"
	"os"
	"strings"
)

const forceSuffix = "_force_next.json"

type forceDoc struct {
	Name string `json:"name"`
}

// LoadForce returns the pinned force-next candidate name for the account.
// An absent file, or a file with a blank name, means no override is set.
func (s *Store) LoadForce(prefix string) (string, error) {
	var doc forceDoc
	err := readJSON(s.path(prefix, forceSuffix), &doc)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Name), nil
}

// SetForce pins a candidate name to preempt normal selection on the next run.
// A blank name clears the override instead.
func (s *Store) SetForce(prefix, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.ClearForce(prefix)
	}
	return writeJSON(s.path(prefix, forceSuffix), &forceDoc{Name: name})
}

// ClearForce removes the override. Clearing an absent override is a no-op.
func (s *Store) ClearForce(prefix string) error {
	err := os.Remove(s.path(prefix, forceSuffix))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
