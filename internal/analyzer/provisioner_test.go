package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"extraction-backend/internal/cache"
	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/schema"
)

type fakeService struct {
	putErr     error
	putCalls   int
	statuses   []contentsvc.AnalyzerState
	statusErrs []error
	polls      int
}

func (f *fakeService) PutAnalyzer(ctx context.Context, id string, doc schema.Document) error {
	f.putCalls++
	return f.putErr
}

func (f *fakeService) GetAnalyzer(ctx context.Context, id string) (contentsvc.AnalyzerState, error) {
	i := f.polls
	f.polls++
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return contentsvc.AnalyzerState{}, f.statusErrs[i]
	}
	if i < len(f.statuses) {
		return f.statuses[i], nil
	}
	if len(f.statuses) == 0 {
		return contentsvc.AnalyzerState{Status: contentsvc.AnalyzerProvisioning}, nil
	}
	return f.statuses[len(f.statuses)-1], nil
}

func (f *fakeService) BeginAnalysis(ctx context.Context, analyzerID string, req contentsvc.AnalysisRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeService) GetOperation(ctx context.Context, handle string) (contentsvc.OperationState, error) {
	return contentsvc.OperationState{}, errors.New("not implemented")
}

func (f *fakeService) GetResult(ctx context.Context, handle string) (contentsvc.ResultEnvelope, error) {
	return contentsvc.ResultEnvelope{}, errors.New("not implemented")
}

func testProvisioner(svc contentsvc.Client, budget int) (*Provisioner, *[]time.Duration) {
	var slept []time.Duration
	p := &Provisioner{
		Client:   svc,
		Interval: 10 * time.Millisecond,
		Budget:   budget,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return ctx.Err()
		},
	}
	return p, &slept
}

func TestProvisionReadyShortCircuits(t *testing.T) {
	svc := &fakeService{statuses: []contentsvc.AnalyzerState{
		{Status: contentsvc.AnalyzerProvisioning},
		{Status: contentsvc.AnalyzerProvisioning},
		{Status: contentsvc.AnalyzerReady},
	}}
	p, slept := testProvisioner(svc, 30)

	a, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if a.Status != StatusReady {
		t.Fatalf("status = %s", a.Status)
	}
	if svc.polls != 3 {
		t.Fatalf("polls = %d, want 3 (ready must not sleep out the budget)", svc.polls)
	}
	if len(*slept) != 2 {
		t.Fatalf("sleeps = %d, want 2", len(*slept))
	}
}

func TestProvisionFailedIsImmediate(t *testing.T) {
	svc := &fakeService{statuses: []contentsvc.AnalyzerState{
		{Status: contentsvc.AnalyzerFailed, Detail: "schema rejected"},
	}}
	p, slept := testProvisioner(svc, 30)

	_, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if !errors.Is(err, ErrProvisioningFailed) {
		t.Fatalf("err = %v, want ErrProvisioningFailed", err)
	}
	if svc.polls != 1 || len(*slept) != 0 {
		t.Fatalf("failed status must not keep polling: polls=%d sleeps=%d", svc.polls, len(*slept))
	}
	if err.Error() == ErrProvisioningFailed.Error() {
		t.Fatalf("expected server detail in error, got %q", err)
	}
}

func TestProvisionBudgetExhaustion(t *testing.T) {
	svc := &fakeService{} // never terminal
	p, slept := testProvisioner(svc, 5)

	_, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if !errors.Is(err, ErrProvisioningTimeout) {
		t.Fatalf("err = %v, want ErrProvisioningTimeout", err)
	}
	if svc.polls != 5 {
		t.Fatalf("polls = %d, want exactly the budget", svc.polls)
	}
	if len(*slept) != 4 {
		t.Fatalf("sleeps = %d, want budget-1", len(*slept))
	}
}

func TestProvisionUnknownStatusKeepsPolling(t *testing.T) {
	svc := &fakeService{statuses: []contentsvc.AnalyzerState{
		{Status: "validating"},
		{Status: "warming"},
		{Status: contentsvc.AnalyzerReady},
	}}
	p, _ := testProvisioner(svc, 30)

	a, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if a.Status != StatusReady {
		t.Fatalf("status = %s", a.Status)
	}
}

func TestProvisionTransientErrorConsumesAttempt(t *testing.T) {
	svc := &fakeService{
		statusErrs: []error{errors.New("read tcp: connection reset by peer")},
		statuses: []contentsvc.AnalyzerState{
			{}, // consumed by the error slot
			{Status: contentsvc.AnalyzerReady},
		},
	}
	p, _ := testProvisioner(svc, 30)

	a, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if a.Status != StatusReady {
		t.Fatalf("status = %s", a.Status)
	}
	if svc.polls != 2 {
		t.Fatalf("polls = %d, want 2", svc.polls)
	}
}

func TestProvisionNonTransientErrorStops(t *testing.T) {
	svc := &fakeService{statusErrs: []error{errors.New("analyzer quota exceeded")}}
	p, _ := testProvisioner(svc, 30)

	_, err := p.Provision(context.Background(), schema.Document{Name: "s"}, "an-1")
	if err == nil || errors.Is(err, ErrProvisioningTimeout) {
		t.Fatalf("non-transient poll error should surface directly, got %v", err)
	}
	if svc.polls != 1 {
		t.Fatalf("polls = %d, want 1", svc.polls)
	}
}

func TestProvisionHonorsDeadline(t *testing.T) {
	svc := &fakeService{}
	p, _ := testProvisioner(svc, 30)
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Provision(ctx, schema.Document{Name: "s"}, "an-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestProvisionOrReuseHitsCache(t *testing.T) {
	doc := schema.Document{
		Name:   "invoice",
		Fields: map[string]schema.Field{"vendor": {Type: schema.TypeString, Method: schema.MethodExtract}},
	}
	svc := &fakeService{statuses: []contentsvc.AnalyzerState{
		{Status: contentsvc.AnalyzerReady},
	}}
	c := cache.NewMemoryCache()
	if err := c.Set(context.Background(), cache.AnalyzerReuseKey(doc.Fingerprint()), []byte("an-cached"), 0); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	p, _ := testProvisioner(svc, 30)
	p.Cache = c

	a, err := p.ProvisionOrReuse(context.Background(), doc)
	if err != nil {
		t.Fatalf("provision or reuse: %v", err)
	}
	if a.ID != "an-cached" {
		t.Fatalf("id = %s, want cached analyzer", a.ID)
	}
	if svc.putCalls != 0 {
		t.Fatalf("reuse must not re-provision")
	}
}

func TestProvisionOrReuseStaleCacheFallsThrough(t *testing.T) {
	doc := schema.Document{
		Name:   "invoice",
		Fields: map[string]schema.Field{"vendor": {Type: schema.TypeString, Method: schema.MethodExtract}},
	}
	// First poll answers the reuse verification with failed, the next one
	// answers the fresh provision with ready.
	svc := &fakeService{statuses: []contentsvc.AnalyzerState{
		{Status: contentsvc.AnalyzerFailed},
		{Status: contentsvc.AnalyzerReady},
	}}
	c := cache.NewMemoryCache()
	_ = c.Set(context.Background(), cache.AnalyzerReuseKey(doc.Fingerprint()), []byte("an-stale"), 0)
	p, _ := testProvisioner(svc, 30)
	p.Cache = c

	a, err := p.ProvisionOrReuse(context.Background(), doc)
	if err != nil {
		t.Fatalf("provision or reuse: %v", err)
	}
	if a.ID == "an-stale" {
		t.Fatalf("stale analyzer must not be reused")
	}
	if svc.putCalls != 1 {
		t.Fatalf("expected fresh provisioning, putCalls=%d", svc.putCalls)
	}
	if _, ok, _ := c.Get(context.Background(), cache.AnalyzerReuseKey(doc.Fingerprint())); ok {
		val, _, _ := c.Get(context.Background(), cache.AnalyzerReuseKey(doc.Fingerprint()))
		if string(val) == "an-stale" {
			t.Fatalf("stale cache entry not evicted")
		}
	}
}
