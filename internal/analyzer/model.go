package analyzer

import "time"

const (
	StatusProvisioning = "provisioning"
	StatusReady        = "ready"
	StatusFailed       = "failed"
)

// Analyzer is the local record of an externally provisioned analyzer
// resource. Once ready or failed it is terminal; a new schema means a new
// analyzer under a new id, never a mutation of this one.
type Analyzer struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	SchemaName  string     `json:"schemaName"`
	Fingerprint string     `json:"fingerprint"`
	Detail      string     `json:"detail,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadyAt     *time.Time `json:"readyAt,omitempty"`
}
