package contentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"extraction-backend/internal/schema"
)

func testDoc() schema.Document {
	return schema.Document{
		Name: "invoice",
		Fields: map[string]schema.Field{
			"vendor": {Type: schema.TypeString, Method: schema.MethodExtract},
		},
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, "test-key", "2024-12-01")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestPutAnalyzerSendsCanonicalSchema(t *testing.T) {
	var gotPath, gotKey string
	var gotBody analyzerPayload
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if err := client.PutAnalyzer(context.Background(), "an-1", testDoc()); err != nil {
		t.Fatalf("put analyzer: %v", err)
	}
	if gotPath != "/analyzers/an-1" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header missing")
	}
	if gotBody.FieldSchema.Fields["vendor"].Method != schema.MethodExtract {
		t.Fatalf("schema not embedded: %+v", gotBody)
	}
}

func TestBeginAnalysisReturnsHandleVerbatim(t *testing.T) {
	const handle = "https://svc.example/operations/op-1?api-version=2024-12-01"
	var gotBody AnalysisRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Operation-Location", handle)
		w.WriteHeader(http.StatusAccepted)
	}))

	got, err := client.BeginAnalysis(context.Background(), "an-1", AnalysisRequest{
		DocumentURLs: []string{"https://docs.example/a.pdf"},
	})
	if err != nil {
		t.Fatalf("begin analysis: %v", err)
	}
	if got != handle {
		t.Fatalf("handle = %q, want the Operation-Location value verbatim", got)
	}
	if len(gotBody.DocumentURLs) != 1 {
		t.Fatalf("document refs not sent: %+v", gotBody)
	}
}

func TestBeginAnalysisMissingHandle(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	if _, err := client.BeginAnalysis(context.Background(), "an-1", AnalysisRequest{DocumentURLs: []string{"u"}}); err == nil {
		t.Fatalf("expected error when Operation-Location is absent")
	}
}

func TestGetResultInterimVersusFinal(t *testing.T) {
	responses := []string{
		`{"status":"running"}`,
		`{"status":"succeeded","result":{"fields":{"vendor":"ACME"}}}`,
	}
	i := 0
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responses[i]))
		if i < len(responses)-1 {
			i++
		}
	}))

	first, err := client.GetResult(context.Background(), srv.URL+"/operations/op-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if first.Final() {
		t.Fatalf("interim payload reported final: %+v", first)
	}

	second, err := client.GetResult(context.Background(), srv.URL+"/operations/op-1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if !second.Final() {
		t.Fatalf("final payload not recognized: %+v", second)
	}
	if second.Fields["vendor"] != "ACME" {
		t.Fatalf("fields = %+v", second.Fields)
	}
}

func TestServerErrorSurfacesStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"Busy","message":"try later"}}`))
	}))

	_, err := client.GetAnalyzer(context.Background(), "an-1")
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.Code != http.StatusServiceUnavailable || serr.Message != "try later" {
		t.Fatalf("unexpected status error: %+v", serr)
	}
}
