package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"extraction-backend/internal/analyzer"
	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/metrics"
	"extraction-backend/internal/shared/storage/object"
	"extraction-backend/internal/shared/telemetry"
)

// SchemaSource resolves a stored schema id to its canonical document.
type SchemaSource interface {
	Document(ctx context.Context, id string) (schema.Document, error)
}

// Enqueuer hands a run off for asynchronous processing. When nil the
// service falls back to an in-process goroutine.
type Enqueuer interface {
	EnqueueRun(ctx context.Context, runID string) error
}

// Outcome carries the artifacts of a pipeline execution. AnalyzerID and
// OperationHandle are filled as soon as the corresponding phase
// finishes, so a failed outcome still identifies how far it got.
type Outcome struct {
	Result          schema.Result
	AnalyzerID      string
	OperationHandle string
}

// Service drives extraction runs end to end: it creates run records,
// executes the normalize/provision/submit/await pipeline and persists
// the terminal state.
type Service struct {
	Repo        Repo
	Schemas     SchemaSource
	Store       object.Store
	Provisioner *analyzer.Provisioner
	Submitter   *Submitter
	Poller      *Poller
	Queue       Enqueuer

	// RunTimeout bounds a single pipeline execution. Zero disables the
	// deadline.
	RunTimeout time.Duration
}

// Create records a queued run for a stored schema and hands it off for
// processing.
func (s *Service) Create(ctx context.Context, schemaID string, documentRefs []string, opts SubmitOptions) (Run, error) {
	if schemaID == "" {
		return Run{}, errors.New("schema id is required")
	}
	if len(documentRefs) == 0 {
		return Run{}, errors.New("at least one document reference is required")
	}
	if _, err := s.Schemas.Document(ctx, schemaID); err != nil {
		return Run{}, err
	}

	run := Run{
		ID:           "run-" + uuid.NewString(),
		SchemaID:     schemaID,
		DocumentRefs: documentRefs,
		Pages:        opts.Pages,
		Locale:       opts.Locale,
		Status:       StatusQueued,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, run); err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	telemetry.Info("run.created", map[string]any{
		"run_id":    run.ID,
		"schema_id": schemaID,
		"documents": len(documentRefs),
	})

	if s.Queue != nil {
		if err := s.Queue.EnqueueRun(ctx, run.ID); err != nil {
			return Run{}, fmt.Errorf("enqueue run: %w", err)
		}
	} else {
		go s.processAsync(run.ID)
	}
	return run, nil
}

// Execute runs the full pipeline on an already-normalizable schema:
// normalize, provision (with reuse), submit and await. Every failure is
// classified by the phase it escaped from.
func (s *Service) Execute(ctx context.Context, rawSchema any, documentRefs []string, opts SubmitOptions) (Outcome, *ClassifiedError) {
	var out Outcome

	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}

	doc, err := schema.Normalize(rawSchema)
	if err != nil {
		return out, Classify(PhaseNormalize, err)
	}

	an, err := s.Provisioner.ProvisionOrReuse(ctx, doc)
	if err != nil {
		return out, Classify(PhaseProvision, err)
	}
	out.AnalyzerID = an.ID

	handle, err := s.Submitter.Submit(ctx, an.ID, documentRefs, opts)
	if err != nil {
		return out, Classify(PhaseSubmit, err)
	}
	out.OperationHandle = handle

	result, err := s.Poller.Await(ctx, handle, doc)
	if err != nil {
		return out, Classify(PhaseAwait, err)
	}
	out.Result = result
	return out, nil
}

// Process executes a previously created run. It is the worker entry
// point: the caller owns retry semantics, Process only records the
// terminal state it reaches.
func (s *Service) Process(ctx context.Context, runID string) error {
	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, runID, startedAt); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	metrics.IncRunStarted()
	telemetry.Info("run.processing", map[string]any{
		"run_id":    run.ID,
		"schema_id": run.SchemaID,
	})

	doc, err := s.Schemas.Document(ctx, run.SchemaID)
	if err != nil {
		cerr := Classify(PhasePersist, err)
		s.failRun(ctx, run, Outcome{}, cerr)
		return cerr
	}

	out, cerr := s.Execute(ctx, doc, run.DocumentRefs, SubmitOptions{Pages: run.Pages, Locale: run.Locale})
	if cerr != nil {
		s.failRun(ctx, run, out, cerr)
		return cerr
	}
	return s.completeRun(ctx, run, out, startedAt)
}

func (s *Service) completeRun(ctx context.Context, run Run, out Outcome, startedAt time.Time) error {
	resultKey := ""
	if s.Store != nil {
		key, err := object.SaveJSON(ctx, s.Store, "results", run.ID+".json", out.Result)
		if err != nil {
			cerr := Classify(PhasePersist, fmt.Errorf("save result: %w", err))
			s.failRun(ctx, run, out, cerr)
			return cerr
		}
		resultKey = key
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.MarkCompleted(ctx, run.ID, out.AnalyzerID, out.OperationHandle, resultKey, completedAt); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationMs(float64(completedAt.Sub(startedAt).Milliseconds()))
	telemetry.Info("run.completed", map[string]any{
		"run_id":      run.ID,
		"analyzer_id": out.AnalyzerID,
		"fields":      len(out.Result),
		"duration_ms": completedAt.Sub(startedAt).Milliseconds(),
	})
	return nil
}

func (s *Service) failRun(ctx context.Context, run Run, out Outcome, cerr *ClassifiedError) {
	completedAt := time.Now().UTC()
	if err := s.Repo.MarkFailed(ctx, run.ID, out.AnalyzerID, out.OperationHandle, cerr.Class, cerr.Error(), completedAt); err != nil {
		telemetry.Error("run.mark_failed_error", map[string]any{"run_id": run.ID, "error": err.Error()})
	}
	if cerr.Class == ClassTimeout {
		metrics.IncRunTimedOut()
	} else {
		metrics.IncRunFailed()
	}
	telemetry.Error("run.failed", map[string]any{
		"run_id": run.ID,
		"class":  cerr.Class,
		"phase":  cerr.Phase,
		"error":  cerr.Error(),
	})
}

// Get returns a run by id.
func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	return s.Repo.GetByID(ctx, id)
}

// LoadResult fetches the stored result payload for a completed run.
func (s *Service) LoadResult(ctx context.Context, run Run) (schema.Result, error) {
	if run.Status != StatusCompleted || run.ResultKey == "" {
		return nil, fmt.Errorf("run %s has no result", run.ID)
	}
	var result schema.Result
	if err := object.LoadJSON(ctx, s.Store, run.ResultKey, &result); err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	return result, nil
}

func (s *Service) processAsync(runID string) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("run.panic", map[string]any{"run_id": runID, "panic": fmt.Sprint(r)})
		}
	}()
	if err := s.Process(context.Background(), runID); err != nil {
		telemetry.Error("run.process_error", map[string]any{"run_id": runID, "error": err.Error()})
	}
}
