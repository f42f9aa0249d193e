package runs

import (
	"context"
	"sync"

	"extraction-backend/internal/contentsvc"
	"extraction-backend/internal/schema"
)

// resultStep scripts one GetResult response.
type resultStep struct {
	env contentsvc.ResultEnvelope
	err error
}

// opStep scripts one GetOperation response.
type opStep struct {
	state contentsvc.OperationState
	err   error
}

// fakeAnalysis scripts the analysis service. Each call family consumes its
// script in order and repeats the last step once exhausted.
type fakeAnalysis struct {
	mu sync.Mutex

	analyzerStates []contentsvc.AnalyzerState
	opSteps        []opStep
	resultSteps    []resultStep
	handle         string
	beginErr       error

	putCalls      int
	analyzerPolls int
	beginCalls    int
	opPolls       int
	resultFetches int
	lastAnalyzer  string
	lastRequest   contentsvc.AnalysisRequest
	putDocs       []schema.Document
}

func (f *fakeAnalysis) PutAnalyzer(ctx context.Context, id string, doc schema.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	f.putDocs = append(f.putDocs, doc)
	return nil
}

func (f *fakeAnalysis) GetAnalyzer(ctx context.Context, id string) (contentsvc.AnalyzerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.analyzerPolls
	f.analyzerPolls++
	if i >= len(f.analyzerStates) {
		i = len(f.analyzerStates) - 1
	}
	if i < 0 {
		return contentsvc.AnalyzerState{Status: contentsvc.AnalyzerReady}, nil
	}
	return f.analyzerStates[i], nil
}

func (f *fakeAnalysis) BeginAnalysis(ctx context.Context, analyzerID string, req contentsvc.AnalysisRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beginCalls++
	f.lastAnalyzer = analyzerID
	f.lastRequest = req
	if f.beginErr != nil {
		return "", f.beginErr
	}
	return f.handle, nil
}

func (f *fakeAnalysis) GetOperation(ctx context.Context, handle string) (contentsvc.OperationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.opPolls
	f.opPolls++
	if i >= len(f.opSteps) {
		i = len(f.opSteps) - 1
	}
	step := f.opSteps[i]
	return step.state, step.err
}

func (f *fakeAnalysis) GetResult(ctx context.Context, handle string) (contentsvc.ResultEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.resultFetches
	f.resultFetches++
	if i >= len(f.resultSteps) {
		i = len(f.resultSteps) - 1
	}
	step := f.resultSteps[i]
	return step.env, step.err
}

func running() opStep {
	return opStep{state: contentsvc.OperationState{Status: contentsvc.OperationRunning}}
}

func succeeded() opStep {
	return opStep{state: contentsvc.OperationState{Status: contentsvc.OperationSucceeded}}
}

func interimResult() resultStep {
	return resultStep{env: contentsvc.ResultEnvelope{Status: contentsvc.OperationRunning}}
}

func finalResult(fields map[string]any) resultStep {
	return resultStep{env: contentsvc.ResultEnvelope{Status: contentsvc.OperationSucceeded, Fields: fields}}
}

func contentEnvelope(status string, fields map[string]any) contentsvc.ResultEnvelope {
	return contentsvc.ResultEnvelope{Status: status, Fields: fields}
}

func opFailedState(detail string) contentsvc.OperationState {
	return contentsvc.OperationState{Status: contentsvc.OperationFailed, Detail: detail}
}

func provisioningState() contentsvc.AnalyzerState {
	return contentsvc.AnalyzerState{Status: contentsvc.AnalyzerProvisioning}
}

func readyState() contentsvc.AnalyzerState {
	return contentsvc.AnalyzerState{Status: contentsvc.AnalyzerReady}
}

func failedState(detail string) contentsvc.AnalyzerState {
	return contentsvc.AnalyzerState{Status: contentsvc.AnalyzerFailed, Detail: detail}
}
