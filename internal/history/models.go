package history

import (
	"time"

	"multicam/internal/session"
)

type SessionRecord struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Interrupted bool         `json:"interrupted"`
	DurationSec float64      `json:"durationSec"`
	OutputPath  string       `json:"outputPath"`
	TakeDir     string       `json:"takeDir,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	EndedAt     time.Time    `json:"endedAt"`
	Steps       []StepRecord `json:"steps"`
}

type StepRecord struct {
	Phase      string   `json:"phase"`
	Status     string   `json:"status"`
	Class      string   `json:"class,omitempty"`
	Args       []string `json:"args,omitempty"`
	ExitCode   *int     `json:"exitCode,omitempty"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"durationMs"`
}

// FromOutcome converts a session.Outcome to a SessionRecord
func FromOutcome(o session.Outcome) *SessionRecord {
	steps := make([]StepRecord, len(o.Results))
	for i, r := range o.Results {
		steps[i] = StepRecord{
			Phase:      string(r.Phase),
			Status:     string(r.Status),
			Class:      string(r.Class),
			Args:       r.Args,
			ExitCode:   r.ExitCode,
			Message:    r.Message,
			Error:      errString(r.Err),
			DurationMs: r.Duration.Milliseconds(),
		}
	}

	return &SessionRecord{
		ID:          o.SessionID,
		Status:      string(o.Status),
		Interrupted: o.Interrupted,
		DurationSec: o.Config.Duration.Seconds(),
		OutputPath:  o.Config.OutputPath,
		TakeDir:     o.TakeDir,
		Error:       errString(o.Err),
		StartedAt:   o.StartedAt,
		EndedAt:     o.EndedAt,
		Steps:       steps,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
