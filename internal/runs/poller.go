package runs

import (
	"context"
	"fmt"
	"time"

	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/metrics"
	"extraction-backend/internal/shared/retry"
	"extraction-backend/internal/shared/telemetry"
)

const (
	defaultStatusInterval = 10 * time.Second
	defaultStatusBudget   = 60
	defaultSkewBase       = 2 * time.Second
	defaultSkewAttempts   = 5
)

// Poller drives one analysis operation to a terminal outcome. It runs two
// phases: poll the status signal until it reports success, then fetch the
// result payload, backing off while the payload itself still reports an
// interim state. The two signals are only loosely synchronized; treating
// "status succeeded" as "result available" is exactly the bug this type
// exists to prevent.
type Poller struct {
	Client   contentsvc.Client
	Interval time.Duration
	Budget   int
	Skew     retry.Backoff

	// Sleep is swappable so tests do not wait out real intervals.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return defaultStatusInterval
}

func (p *Poller) budget() int {
	if p.Budget > 0 {
		return p.Budget
	}
	return defaultStatusBudget
}

func (p *Poller) skew() retry.Backoff {
	b := p.Skew
	if b.Base <= 0 {
		b.Base = defaultSkewBase
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
	if b.Attempts <= 0 {
		b.Attempts = defaultSkewAttempts
	}
	return b
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return retry.Sleep(ctx, d)
}

// Await polls the operation behind the handle until it succeeds, fails, or
// exhausts its budgets, then decodes the final payload using the document's
// field shapes.
func (p *Poller) Await(ctx context.Context, handle string, doc schema.Document) (schema.Result, error) {
	if err := p.awaitStatus(ctx, handle); err != nil {
		return nil, err
	}
	envelope, err := p.awaitResult(ctx, handle)
	if err != nil {
		return nil, err
	}
	result, err := schema.DecodeResult(doc, envelope.Fields)
	if err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	return result, nil
}

// awaitStatus is phase one: drive the status signal to succeeded.
func (p *Poller) awaitStatus(ctx context.Context, handle string) error {
	budget := p.budget()
	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		state, err := p.Client.GetOperation(ctx, handle)
		if err != nil {
			if !retry.Transient(err) {
				return fmt.Errorf("poll operation: %w", err)
			}
			telemetry.Warn("operation.poll_retry", map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			})
			if attempt < budget {
				if err := p.sleep(ctx, p.interval()); err != nil {
					return err
				}
			}
			continue
		}

		switch state.Status {
		case contentsvc.OperationSucceeded:
			return nil
		case contentsvc.OperationFailed:
			return fmt.Errorf("%w: %s", ErrOperationFailed, state.Detail)
		default:
			// running or any vendor-specific interim status
			if attempt < budget {
				if err := p.sleep(ctx, p.interval()); err != nil {
					return err
				}
			}
		}
	}
	return fmt.Errorf("%w: after %d status polls", ErrAnalysisTimeout, p.budget())
}

// awaitResult is phase two: fetch the payload, backing off while it still
// reports an interim state. The interim check reads the payload's own
// status field, never the transport status code.
func (p *Poller) awaitResult(ctx context.Context, handle string) (contentsvc.ResultEnvelope, error) {
	backoff := p.skew()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return contentsvc.ResultEnvelope{}, err
		}

		envelope, err := p.Client.GetResult(ctx, handle)
		switch {
		case err != nil && !retry.Transient(err):
			return contentsvc.ResultEnvelope{}, fmt.Errorf("fetch result: %w", err)
		case err == nil && envelope.Status == contentsvc.OperationFailed:
			return contentsvc.ResultEnvelope{}, fmt.Errorf("%w: %s", ErrOperationFailed, envelope.Detail)
		case err == nil && envelope.Final():
			return envelope, nil
		}

		// Interim payload or transient fetch error: both consume one
		// backoff attempt.
		if attempt >= backoff.Attempts {
			return contentsvc.ResultEnvelope{}, fmt.Errorf("%w: after %d fetches", ErrResultSkew, attempt+1)
		}
		metrics.IncResultSkewRetry()
		fields := map[string]any{"attempt": attempt + 1, "delay": backoff.Delay(attempt).String()}
		if err != nil {
			fields["error"] = err.Error()
		} else {
			fields["payload_status"] = envelope.Status
		}
		telemetry.Warn("result.skew_retry", fields)

		if err := p.sleep(ctx, backoff.Delay(attempt)); err != nil {
			return contentsvc.ResultEnvelope{}, err
		}
	}
}
