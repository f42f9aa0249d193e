package runs

import (
	"context"
	"fmt"

	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/shared/telemetry"
)

// SubmitOptions carries the optional analysis parameters.
type SubmitOptions struct {
	Pages  string
	Locale string
}

// Submitter starts analysis operations against a ready analyzer.
type Submitter struct {
	Client contentsvc.Client
}

// Submit sends only document references and optional parameters; the schema
// already lives in the analyzer and is never resent here. The returned
// handle is the service's opaque operation locator and must be passed to the
// poller untouched.
func (s *Submitter) Submit(ctx context.Context, analyzerID string, documentRefs []string, opts SubmitOptions) (string, error) {
	if analyzerID == "" {
		return "", fmt.Errorf("analyzer id is required")
	}
	if len(documentRefs) == 0 {
		return "", fmt.Errorf("at least one document reference is required")
	}

	handle, err := s.Client.BeginAnalysis(ctx, analyzerID, contentsvc.AnalysisRequest{
		DocumentURLs: documentRefs,
		Pages:        opts.Pages,
		Locale:       opts.Locale,
	})
	if err != nil {
		return "", fmt.Errorf("begin analysis: %w", err)
	}

	telemetry.Info("analysis.submitted", map[string]any{
		"analyzer_id": analyzerID,
		"documents":   len(documentRefs),
	})
	return handle, nil
}
