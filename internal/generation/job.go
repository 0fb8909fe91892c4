package generation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/internal/payload"
)

// Status is a job's position in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusGenerating},
	StatusGenerating: {StatusSuccess, StatusError},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool { return s == StatusSuccess || s == StatusError }

// Job renders one document for one target: a client, or the whole case
// when TargetID is nil. Jobs live only for the duration of a run.
type Job struct {
	Index      int        `json:"index"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	URL        string     `json:"url,omitempty"`

	payload payload.Payload
}

// Payload is the render body built for the job at planning time.
func (j *Job) Payload() payload.Payload { return j.payload }

func (j *Job) moveTo(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

func (j *Job) fail(msg string) error {
	if err := j.moveTo(StatusError); err != nil {
		return err
	}
	j.Error = msg
	return nil
}

func (j *Job) warn(msg string) { j.Warnings = append(j.Warnings, msg) }

// snapshot copies the job for observers and results.
func (j *Job) snapshot() Job {
	c := *j
	c.Warnings = append([]string(nil), j.Warnings...)
	c.payload = nil
	return c
}
