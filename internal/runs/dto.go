package runs

import (
	"time"

	"extraction-backend/internal/schema"
)

// RunDTO is the API representation of a run. The operation handle and
// result key stay internal.
type RunDTO struct {
	ID           string        `json:"id"`
	SchemaID     string        `json:"schemaId"`
	AnalyzerID   string        `json:"analyzerId,omitempty"`
	DocumentRefs []string      `json:"documentRefs"`
	Pages        string        `json:"pages,omitempty"`
	Locale       string        `json:"locale,omitempty"`
	Status       string        `json:"status"`
	ErrorClass   string        `json:"errorClass,omitempty"`
	ErrorDetail  string        `json:"errorDetail,omitempty"`
	Result       schema.Result `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

func toDTO(run Run, result schema.Result) RunDTO {
	return RunDTO{
		ID:           run.ID,
		SchemaID:     run.SchemaID,
		AnalyzerID:   run.AnalyzerID,
		DocumentRefs: run.DocumentRefs,
		Pages:        run.Pages,
		Locale:       run.Locale,
		Status:       run.Status,
		ErrorClass:   run.ErrorClass,
		ErrorDetail:  run.ErrorDetail,
		Result:       result,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
}
