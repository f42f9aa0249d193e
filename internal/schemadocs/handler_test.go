package schemadocs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"extraction-backend/internal/shared/storage/object/local"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := &Service{Repo: NewMemoryRepo(), Store: local.New(t.TempDir())}
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestPutAndGetSchema(t *testing.T) {
	r := testRouter(t)

	body := `{"name":"invoice","fields":{"vendor":{"type":"string","method":"extract"}}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schemas/sch-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d body = %s", rec.Code, rec.Body.String())
	}
	var put schemaDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &put); err != nil {
		t.Fatalf("decode put response: %v", err)
	}
	if put.Fingerprint == "" {
		t.Fatalf("fingerprint missing in response: %s", rec.Body.String())
	}
	if put.Document.Fields["vendor"].Method != "extract" {
		t.Fatalf("canonical document not returned: %+v", put.Document)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schemas/sch-1", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d body = %s", rec.Code, rec.Body.String())
	}
	var got schemaDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Fingerprint != put.Fingerprint {
		t.Fatalf("fingerprint changed across PUT/GET")
	}
}

func TestPutInvalidSchemaReturns422(t *testing.T) {
	r := testRouter(t)

	body := `{"fields":{"vendor":{"type":"string"}}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schemas/sch-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "MissingGenerationMethod") {
		t.Fatalf("validation code missing from body: %s", rec.Body.String())
	}
}

func TestGetUnknownSchemaReturns404(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schemas/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
