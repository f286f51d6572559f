package model

// Run states persisted in the per-account status record.
const (
	StatusNever   = "never"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxStatusMessage caps the persisted status message length, in runes.
const MaxStatusMessage = 2000

// RunStatus is the last-run outcome for an account. LastRun is empty until the
// first run and is otherwise a UTC RFC3339 timestamp with second precision.
type RunStatus struct {
	LastRun string `json:"last_run"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NeverRun is the status reported for an account with no persisted record.
func NeverRun() RunStatus {
	return RunStatus{Status: StatusNever}
}

// TruncateMessage trims a status message to MaxStatusMessage runes.
func TruncateMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxStatusMessage {
		return msg
	}
	return string(r[:MaxStatusMessage])
}
