package state

import (
	"errors"
	"os"
)

const usedSuffix = "_video_used.json"

type usedDoc struct {
	Used []string `json:"used"`
}

// LoadUsed returns the ordered list of logical candidate names the account
// has already consumed. A missing file is an empty set.
func (s *Store) LoadUsed(prefix string) ([]string, error) {
	var doc usedDoc
	err := readJSON(s.path(prefix, usedSuffix), &doc)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Used, nil
}

// UsedSet returns the used list as a membership set.
func (s *Store) UsedSet(prefix string) (map[string]bool, error) {
	list, err := s.LoadUsed(prefix)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, name := range list {
		set[name] = true
	}
	return set, nil
}

// MarkUsed appends a logical candidate name to the account's used set.
// Already-present names are not duplicated.
func (s *Store) MarkUsed(prefix, name string) error {
	list, err := s.LoadUsed(prefix)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == name {
			return nil
		}
	}
	list = append(list, name)
	return writeJSON(s.path(prefix, usedSuffix), &usedDoc{Used: list})
}

// ClearUsed resets the account's used set to empty.
func (s *Store) ClearUsed(prefix string) error {
	return writeJSON(s.path(prefix, usedSuffix), &usedDoc{Used: []string{}})
}
