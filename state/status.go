package state

import (
	"errors"
	"os"
	"time"

	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
)

const statusSuffix = "_status.json"

// SaveStatus overwrites the account's run status record. The message is
// truncated to the persisted cap and last_run is stamped with the current UTC
// time at second precision.
func (s *Store) SaveStatus(prefix, status, message string) error {
	rec := model.RunStatus{
		LastRun: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Status:  status,
		Message: model.TruncateMessage(message),
	}
	if err := writeJSON(s.path(prefix, statusSuffix), &rec); err != nil {
		log.Error().Err(err).Str("account", prefix).Msg("Failed to save run status")
		return err
	}
	return nil
}

// LoadStatus reads the account's last-run record. A missing file means the
// account has never run.
func (s *Store) LoadStatus(prefix string) (model.RunStatus, error) {
	var rec model.RunStatus
	err := readJSON(s.path(prefix, statusSuffix), &rec)
	if errors.Is(err, os.ErrNotExist) {
		return model.NeverRun(), nil
	}
	if err != nil {
		return model.NeverRun(), err
	}
	return rec, nil
}
