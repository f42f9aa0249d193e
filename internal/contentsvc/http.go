package contentsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"extraction-backend/internal/schema"
)

const operationLocationHeader = "Operation-Location"

// HTTPClient implements Client against the service's REST surface.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

// NewHTTPClient constructs a client for the given service endpoint.
func NewHTTPClient(endpoint, apiKey, apiVersion string) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("ANALYSIS_ENDPOINT is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANALYSIS_API_KEY is required")
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("ANALYSIS_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type analyzerPayload struct {
	Description string          `json:"description,omitempty"`
	FieldSchema schema.Document `json:"fieldSchema"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzerResponse struct {
	Status string        `json:"status"`
	Error  *serviceError `json:"error,omitempty"`
}

type operationResponse struct {
	Status string        `json:"status"`
	Error  *serviceError `json:"error,omitempty"`
	Result *struct {
		Fields map[string]any `json:"fields"`
	} `json:"result,omitempty"`
}

// PutAnalyzer creates or replaces an analyzer embedding the canonical
// schema. The call is accepted asynchronously; the resource is not usable
// until GetAnalyzer reports ready.
func (c *HTTPClient) PutAnalyzer(ctx context.Context, id string, doc schema.Document) error {
	endpoint := c.analyzerURL(id)
	body, err := json.Marshal(analyzerPayload{Description: doc.Description, FieldSchema: doc})
	if err != nil {
		return fmt.Errorf("encode analyzer payload: %w", err)
	}
	if _, _, err := c.do(ctx, http.MethodPut, endpoint, body); err != nil {
		return fmt.Errorf("put analyzer %s: %w", id, err)
	}
	return nil
}

// GetAnalyzer returns the analyzer's provisioning status.
func (c *HTTPClient) GetAnalyzer(ctx context.Context, id string) (AnalyzerState, error) {
	data, _, err := c.do(ctx, http.MethodGet, c.analyzerURL(id), nil)
	if err != nil {
		return AnalyzerState{}, fmt.Errorf("get analyzer %s: %w", id, err)
	}
	var resp analyzerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AnalyzerState{}, fmt.Errorf("decode analyzer %s: %w", id, err)
	}
	state := AnalyzerState{Status: strings.ToLower(strings.TrimSpace(resp.Status))}
	if resp.Error != nil {
		state.Detail = resp.Error.Message
	}
	return state, nil
}

// BeginAnalysis starts an asynchronous analysis and returns the operation
// handle from the Operation-Location header, verbatim.
func (c *HTTPClient) BeginAnalysis(ctx context.Context, analyzerID string, req AnalysisRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode analysis request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/analyzers/%s:analyze", c.endpoint, url.PathEscape(analyzerID))
	if c.apiVersion != "" {
		endpoint += "?api-version=" + url.QueryEscape(c.apiVersion)
	}
	_, header, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("begin analysis analyzer=%s: %w", analyzerID, err)
	}
	handle := strings.TrimSpace(header.Get(operationLocationHeader))
	if handle == "" {
		return "", fmt.Errorf("begin analysis analyzer=%s: response missing %s header", analyzerID, operationLocationHeader)
	}
	return handle, nil
}

// GetOperation returns the operation's status signal.
func (c *HTTPClient) GetOperation(ctx context.Context, handle string) (OperationState, error) {
	data, _, err := c.do(ctx, http.MethodGet, c.resolveHandle(handle), nil)
	if err != nil {
		return OperationState{}, fmt.Errorf("get operation: %w", err)
	}
	var resp operationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return OperationState{}, fmt.Errorf("decode operation: %w", err)
	}
	state := OperationState{Status: strings.ToLower(strings.TrimSpace(resp.Status))}
	if resp.Error != nil {
		state.Detail = resp.Error.Message
	}
	return state, nil
}

// GetResult fetches the operation's result envelope. The envelope's own
// status field decides whether the payload is final; callers must not infer
// that from the HTTP status code.
func (c *HTTPClient) GetResult(ctx context.Context, handle string) (ResultEnvelope, error) {
	data, _, err := c.do(ctx, http.MethodGet, c.resolveHandle(handle), nil)
	if err != nil {
		return ResultEnvelope{}, fmt.Errorf("get result: %w", err)
	}
	var resp operationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return ResultEnvelope{}, fmt.Errorf("decode result: %w", err)
	}
	envelope := ResultEnvelope{Status: strings.ToLower(strings.TrimSpace(resp.Status))}
	if resp.Error != nil {
		envelope.Detail = resp.Error.Message
	}
	if resp.Result != nil {
		envelope.Fields = resp.Result.Fields
	}
	return envelope, nil
}

func (c *HTTPClient) analyzerURL(id string) string {
	endpoint := fmt.Sprintf("%s/analyzers/%s", c.endpoint, url.PathEscape(id))
	if c.apiVersion != "" {
		endpoint += "?api-version=" + url.QueryEscape(c.apiVersion)
	}
	return endpoint
}

// resolveHandle uses an absolute handle as-is and resolves a relative one
// against the configured endpoint. The handle itself is never rewritten.
func (c *HTTPClient) resolveHandle(handle string) string {
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	return c.endpoint + "/" + strings.TrimLeft(handle, "/")
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, newStatusError(resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("analysis service http status %d", e.Code)
	}
	return fmt.Sprintf("analysis service http status %d: %s", e.Code, e.Message)
}

func newStatusError(code int, body []byte) error {
	var wrapped struct {
		Error *serviceError `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil {
		message = wrapped.Error.Message
	}
	return &StatusError{Code: code, Message: message}
}

var _ Client = (*HTTPClient)(nil)
