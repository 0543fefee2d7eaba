package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

type JobUpdateData struct {
	Status         JobStatus       `json:"status"`
	Progress       int             `json:"progress"`
	CurrentSection *string         `json:"current_section"`
	Results        json.RawMessage `json:"results,omitempty"`
	ErrorMessage   *string         `json:"error_message"`
	UpdatedAt      string          `json:"updated_at"`
}

// JobUpdate is a push notification received over the job WebSocket.
type JobUpdate struct {
	Type    string         `json:"type"`
	JobID   string         `json:"job_id"`
	Data    *JobUpdateData `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

type JobState struct {
	JobID          string          `json:"jobId"`
	Status         JobStatus       `json:"status"`
	Progress       int             `json:"progress"`
	CurrentSection string          `json:"currentSection"`
	Results        json.RawMessage `json:"results"`
	Error          string          `json:"error"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (s JobState) IsTerminal() bool {
	return s.Status.IsTerminal() || s.Error != ""
}
