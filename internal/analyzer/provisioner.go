package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"extraction-backend/internal/cache"
	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/schema"
	"extraction-backend/internal/shared/metrics"
	"extraction-backend/internal/shared/retry"
	"extraction-backend/internal/shared/telemetry"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultPollBudget   = 30
	reuseTTL            = 12 * time.Hour
)

// Provisioner creates analyzers on the external service and polls them to a
// terminal status. Repo and Cache are optional; without them every call
// provisions fresh.
type Provisioner struct {
	Client   contentsvc.Client
	Repo     Repo
	Cache    cache.Cache
	Interval time.Duration
	Budget   int

	// Sleep is swappable so tests do not wait out real intervals.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p *Provisioner) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return defaultPollInterval
}

func (p *Provisioner) budget() int {
	if p.Budget > 0 {
		return p.Budget
	}
	return defaultPollBudget
}

func (p *Provisioner) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return retry.Sleep(ctx, d)
}

// Provision submits a create-or-replace for the analyzer id and polls until
// the resource is ready, has failed, or the poll budget runs out. Network
// errors while polling consume an attempt and continue; a failed status
// returns immediately.
func (p *Provisioner) Provision(ctx context.Context, doc schema.Document, id string) (Analyzer, error) {
	if id == "" {
		return Analyzer{}, fmt.Errorf("analyzer id is required")
	}

	a := Analyzer{
		ID:          id,
		Status:      StatusProvisioning,
		SchemaName:  doc.Name,
		Fingerprint: doc.Fingerprint(),
		CreatedAt:   time.Now().UTC(),
	}
	if p.Repo != nil {
		if err := p.Repo.Create(ctx, a); err != nil {
			return Analyzer{}, fmt.Errorf("record analyzer %s: %w", id, err)
		}
	}

	if err := p.Client.PutAnalyzer(ctx, id, doc); err != nil {
		return Analyzer{}, fmt.Errorf("create analyzer %s: %w", id, err)
	}

	budget := p.budget()
	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return Analyzer{}, err
		}

		state, err := p.Client.GetAnalyzer(ctx, id)
		if err != nil {
			if !retry.Transient(err) {
				return Analyzer{}, fmt.Errorf("poll analyzer %s: %w", id, err)
			}
			// Transient poll failures consume an attempt but never a
			// terminal outcome, and are always logged with the attempt
			// number so a flaky-then-ok sequence stays visible.
			telemetry.Warn("analyzer.poll_retry", map[string]any{
				"analyzer_id": id,
				"attempt":     attempt,
				"error":       err.Error(),
			})
			if attempt < budget {
				if err := p.sleep(ctx, p.interval()); err != nil {
					return Analyzer{}, err
				}
			}
			continue
		}

		switch state.Status {
		case contentsvc.AnalyzerReady:
			readyAt := time.Now().UTC()
			a.Status = StatusReady
			a.ReadyAt = &readyAt
			p.recordStatus(ctx, &a, "")
			p.cacheReady(ctx, a)
			metrics.IncAnalyzerProvisioned()
			telemetry.Info("analyzer.ready", map[string]any{
				"analyzer_id": id,
				"attempt":     attempt,
			})
			return a, nil
		case contentsvc.AnalyzerFailed:
			a.Status = StatusFailed
			a.Detail = state.Detail
			p.recordStatus(ctx, &a, state.Detail)
			return Analyzer{}, fmt.Errorf("%w: analyzer=%s detail=%s", ErrProvisioningFailed, id, state.Detail)
		default:
			// Unknown statuses count as still provisioning.
			if attempt < budget {
				if err := p.sleep(ctx, p.interval()); err != nil {
					return Analyzer{}, err
				}
			}
		}
	}

	return Analyzer{}, fmt.Errorf("%w: analyzer=%s after %d polls", ErrProvisioningTimeout, id, budget)
}

// ProvisionOrReuse returns a ready analyzer for the document, reusing one
// from a previous run with the same fingerprint when possible. Reuse is an
// optimization only: a stale cache entry falls through to fresh
// provisioning, which is safe under the service's create-or-replace
// semantics.
func (p *Provisioner) ProvisionOrReuse(ctx context.Context, doc schema.Document) (Analyzer, error) {
	fingerprint := doc.Fingerprint()

	if reused, ok := p.lookupReady(ctx, fingerprint); ok {
		metrics.IncAnalyzerReused()
		telemetry.Info("analyzer.reused", map[string]any{
			"analyzer_id": reused.ID,
			"fingerprint": fingerprint,
		})
		return reused, nil
	}

	return p.Provision(ctx, doc, "an-"+uuid.NewString())
}

func (p *Provisioner) lookupReady(ctx context.Context, fingerprint string) (Analyzer, bool) {
	var id string
	if p.Cache != nil {
		if val, ok, err := p.Cache.Get(ctx, cache.AnalyzerReuseKey(fingerprint)); err == nil && ok {
			id = string(val)
		}
	}
	if id == "" && p.Repo != nil {
		if a, err := p.Repo.GetReadyByFingerprint(ctx, fingerprint); err == nil {
			id = a.ID
		}
	}
	if id == "" {
		return Analyzer{}, false
	}

	// Verify against the service before trusting local state.
	state, err := p.Client.GetAnalyzer(ctx, id)
	if err != nil || state.Status != contentsvc.AnalyzerReady {
		if p.Cache != nil {
			_ = p.Cache.Delete(ctx, cache.AnalyzerReuseKey(fingerprint))
		}
		return Analyzer{}, false
	}
	return Analyzer{ID: id, Status: StatusReady, Fingerprint: fingerprint}, true
}

func (p *Provisioner) recordStatus(ctx context.Context, a *Analyzer, detail string) {
	if p.Repo == nil {
		return
	}
	if err := p.Repo.UpdateStatus(ctx, a.ID, a.Status, detail, a.ReadyAt); err != nil {
		telemetry.Error("analyzer.record_status", map[string]any{
			"analyzer_id": a.ID,
			"status":      a.Status,
			"error":       err.Error(),
		})
	}
}

func (p *Provisioner) cacheReady(ctx context.Context, a Analyzer) {
	if p.Cache == nil {
		return
	}
	if err := p.Cache.Set(ctx, cache.AnalyzerReuseKey(a.Fingerprint), []byte(a.ID), reuseTTL); err != nil {
		telemetry.Warn("analyzer.cache_set", map[string]any{
			"analyzer_id": a.ID,
			"error":       err.Error(),
		})
	}
}
