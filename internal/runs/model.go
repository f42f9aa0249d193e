package runs

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Run is one logical extraction request: a schema document applied to a set
// of document references. Exactly one goroutine owns a run while it is
// processing; once terminal the record is never mutated again.
type Run struct {
	ID              string     `json:"id"`
	SchemaID        string     `json:"schemaId"`
	AnalyzerID      string     `json:"analyzerId,omitempty"`
	OperationHandle string     `json:"-"`
	DocumentRefs    []string   `json:"documentRefs"`
	Pages           string     `json:"pages,omitempty"`
	Locale          string     `json:"locale,omitempty"`
	Status          string     `json:"status"`
	ErrorClass      string     `json:"errorClass,omitempty"`
	ErrorDetail     string     `json:"errorDetail,omitempty"`
	ResultKey       string     `json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the run has reached a final status.
func (r Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
