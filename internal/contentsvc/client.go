// Package contentsvc talks to the external document analysis service. The
// service provisions named analyzers asynchronously and runs analysis
// operations against them; both sides of that contract are polled, never
// awaited synchronously.
package contentsvc

import (
	"context"
	"strings"

	"extraction-backend/internal/schema"
)

// Analyzer status values reported by the service. Anything else is treated
// as still provisioning.
const (
	AnalyzerProvisioning = "provisioning"
	AnalyzerReady        = "ready"
	AnalyzerFailed       = "failed"
)

// Operation status values. The service also reports vendor-specific interim
// states; only the terminal ones are matched exactly.
const (
	OperationRunning   = "running"
	OperationSucceeded = "succeeded"
	OperationFailed    = "failed"
)

// AnalyzerState is the status signal for a provisioned analyzer.
type AnalyzerState struct {
	Status string
	Detail string
}

// OperationState is the status signal for one analysis operation.
type OperationState struct {
	Status string
	Detail string
}

// ResultEnvelope is the payload side of an operation. Status here is the
// payload's own progress marker: it can lag the operation status, which is
// exactly the skew the poller reconciles. Fields is nil until the payload
// stabilizes.
type ResultEnvelope struct {
	Status string
	Detail string
	Fields map[string]any
}

// Final reports whether the envelope carries a usable payload rather than an
// interim progress marker. The decision inspects the payload content, never
// the transport status code.
func (e ResultEnvelope) Final() bool {
	return strings.EqualFold(e.Status, OperationSucceeded) && e.Fields != nil
}

// AnalysisRequest carries document references and optional parameters. The
// schema is intentionally absent: it is already embedded in the analyzer.
type AnalysisRequest struct {
	DocumentURLs []string `json:"documentUrls"`
	Pages        string   `json:"pages,omitempty"`
	Locale       string   `json:"locale,omitempty"`
}

// Client is the minimal surface the orchestration core consumes.
//
// BeginAnalysis returns an opaque operation handle. Callers must thread the
// handle through to the status/result calls verbatim; reconstructing it from
// ids is a known correctness hazard because ids differ across responses.
type Client interface {
	PutAnalyzer(ctx context.Context, id string, doc schema.Document) error
	GetAnalyzer(ctx context.Context, id string) (AnalyzerState, error)
	BeginAnalysis(ctx context.Context, analyzerID string, req AnalysisRequest) (string, error)
	GetOperation(ctx context.Context, handle string) (OperationState, error)
	GetResult(ctx context.Context, handle string) (ResultEnvelope, error)
}
