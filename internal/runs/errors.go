package runs

import (
	"context"
	"errors"
	"fmt"

	"extraction-backend/internal/analyzer"
	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/retry"
)

var (
	ErrNotFound = errors.New("run not found")

	// ErrAnalysisTimeout means the operation status never reached a
	// terminal value within the status poll budget.
	ErrAnalysisTimeout = errors.New("analysis operation timed out")

	// ErrResultSkew means the status endpoint reported success but the
	// result payload still reported an interim state after the whole
	// backoff budget. Distinct from ErrAnalysisTimeout so callers can
	// re-poll at a higher level instead of treating the run as dead.
	ErrResultSkew = errors.New("result payload did not stabilize after completion")

	// ErrOperationFailed is a terminal failure reported by the service.
	ErrOperationFailed = errors.New("analysis operation failed")
)

// Error classes. Only timeouts are safely retryable by the caller without
// side effects; terminal failures are not, and validation failures need an
// input fix first.
const (
	ClassValidation = "validation"
	ClassTransient  = "transient"
	ClassTerminal   = "terminal"
	ClassTimeout    = "timeout"
)

// Phases tag where in the pipeline a classified error happened.
const (
	PhaseNormalize = "normalize"
	PhaseProvision = "provision"
	PhaseSubmit    = "submit"
	PhaseAwait     = "await"
	PhasePersist   = "persist"
)

// ClassifiedError wraps a pipeline error with its class and phase so callers
// can distinguish "fix the input" from "try again" from "the service says
// no" from "took too long".
type ClassifiedError struct {
	Class string
	Phase string
	Err   error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s/%s: %v", e.Phase, e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify maps an error from the given phase onto the taxonomy. A terminal
// failure is never downgraded to a retry and a transient one is never
// upgraded to terminal.
func Classify(phase string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	class := ClassTerminal
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		class = ClassValidation
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, analyzer.ErrProvisioningTimeout),
		errors.Is(err, ErrAnalysisTimeout),
		errors.Is(err, ErrResultSkew):
		class = ClassTimeout
	case errors.Is(err, analyzer.ErrProvisioningFailed),
		errors.Is(err, ErrOperationFailed):
		class = ClassTerminal
	case retry.Transient(err):
		class = ClassTransient
	}

	return &ClassifiedError{Class: class, Phase: phase, Err: err}
}
