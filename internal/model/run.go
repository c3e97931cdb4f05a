package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one enrichment of one uploaded file.
type Run struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Column    string    `json:"column"`
	Fields    []string  `json:"fields"`
	Status    RunStatus `json:"status"`
	Stats     RunStats  `json:"stats"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats summarizes what an enrichment run did.
type RunStats struct {
	Rows         int `json:"rows"`
	Fingerprints int `json:"fingerprints"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Records      int `json:"records"`
	MatchedRows  int `json:"matched_rows"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.Status == RunStatusRunning {
		return 0
	}
	return r.UpdatedAt.Sub(r.CreatedAt)
}
