package ws

import (
	"time"

	"github.com/sudokulabs/proofd/internal/job"
)

// Server → client

// StatusMessage mirrors the REST job status shape with a type tag.
type StatusMessage struct {
	Type   string           `json:"type"` // "status"
	JobID  string           `json:"job_id"`
	Status job.Status       `json:"status"`
	Result *job.ProofResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// LogMessage carries one batch of trail lines in append order.
type LogMessage struct {
	Type  string   `json:"type"` // "log"
	JobID string   `json:"job_id"`
	Lines []string `json:"lines"`
}

type PingMessage struct {
	Type      string    `json:"type"` // "ping"
	Timestamp time.Time `json:"timestamp"`
}
