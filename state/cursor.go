package state

import (
	"errors"
	"fmt"
	"os"
)

// Rotation cursor field keys. Each key gets its own {prefix}_{key}.json file.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldThumbIndex  = "thumb_index"
)

type cursorDoc struct {
	LastIndex int `json:"last_index"`
}

// LoadCursor returns the persisted cursor for (prefix, key), defaulting to 0
// when nothing has been persisted yet.
func (s *Store) LoadCursor(prefix, key string) (int, error) {
	var doc cursorDoc
	err := readJSON(s.path(prefix, fmt.Sprintf("_%s.json", key)), &doc)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.LastIndex, nil
}

// SaveCursor persists the cursor for (prefix, key).
func (s *Store) SaveCursor(prefix, key string, idx int) error {
	return writeJSON(s.path(prefix, fmt.Sprintf("_%s.json", key)), &cursorDoc{LastIndex: idx})
}
