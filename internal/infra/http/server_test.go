package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"workseald/internal/config"
	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
	"workseald/internal/infra/ratelimit"
	"workseald/internal/infra/storage/memory"
	"workseald/internal/usecase"

	"github.com/gin-gonic/gin"
)

type memPackageRepo struct {
	mu      sync.Mutex
	records map[string]domain.PackageRecord
}

func (m *memPackageRepo) Create(ctx context.Context, record domain.PackageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]domain.PackageRecord)
	}
	if _, ok := m.records[record.Name]; ok {
		return fmt.Errorf("%w: %q", domain.ErrPackageExists, record.Name)
	}
	m.records[record.Name] = record
	return nil
}

func (m *memPackageRepo) GetByName(ctx context.Context, name string) (*domain.PackageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: package %q", domain.ErrNotFound, name)
	}
	return &record, nil
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service, err := crypto.GenerateKeyPair(domain.CurveP256)
	if err != nil {
		t.Fatalf("generate service pair: %v", err)
	}
	cipher, err := crypto.NewCipher(256)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	var limiter domain.RateLimiter
	if cfg.RateLimitRequests > 0 {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}
	return NewServerWithDeps(cfg, ServerDeps{
		Hybrid:      usecase.NewHybrid(service, cipher),
		Storer:      usecase.NewStorer(memory.NewStore(), &memPackageRepo{}),
		RateLimiter: limiter,
	})
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, config.Config{})
	w := doJSON(t, server, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status %d", w.Code)
	}
}

func TestEncryptDecryptEndpoints(t *testing.T) {
	server := newTestServer(t, config.Config{})
	plaintext := []byte("hello-workload")

	w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", encryptRequest{
		DataBase64:   base64.StdEncoding.EncodeToString(plaintext),
		CloudRegion:  "us-west-2",
		WorkloadType: "web-application",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("encrypt status %d: %s", w.Code, w.Body.String())
	}
	var pkg domain.WorkloadPackage
	if err := json.Unmarshal(w.Body.Bytes(), &pkg); err != nil {
		t.Fatalf("decode package: %v", err)
	}
	if pkg.Signature == "" || pkg.CloudRegion != "us-west-2" {
		t.Fatalf("unexpected package: %+v", pkg)
	}

	w = doJSON(t, server, http.MethodPost, "/v1/workloads/decrypt", pkg)
	if w.Code != http.StatusOK {
		t.Fatalf("decrypt status %d: %s", w.Code, w.Body.String())
	}
	var out decryptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(out.DataBase64)
	if err != nil {
		t.Fatalf("decode plaintext: %v", err)
	}
	if !bytes.Equal(data, plaintext) {
		t.Fatalf("plaintext mismatch: %q", data)
	}
	if out.Provenance.CloudRegion != "us-west-2" || out.Provenance.WorkloadType != "web-application" {
		t.Fatalf("provenance mismatch: %+v", out.Provenance)
	}
}

func TestDecryptEndpointRejectsTamperedPackage(t *testing.T) {
	server := newTestServer(t, config.Config{})

	w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", encryptRequest{
		DataBase64:   base64.StdEncoding.EncodeToString([]byte("secret")),
		CloudRegion:  "us-west-2",
		WorkloadType: "database",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("encrypt status %d", w.Code)
	}
	var pkg domain.WorkloadPackage
	if err := json.Unmarshal(w.Body.Bytes(), &pkg); err != nil {
		t.Fatalf("decode package: %v", err)
	}
	pkg.CloudRegion = "us-east-1"

	w = doJSON(t, server, http.MethodPost, "/v1/workloads/decrypt", pkg)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "INTEGRITY_FAILURE" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestEncryptEndpointValidatesRequest(t *testing.T) {
	server := newTestServer(t, config.Config{})

	w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", encryptRequest{
		DataBase64: base64.StdEncoding.EncodeToString([]byte("x")),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing metadata, got %d", w.Code)
	}

	w = doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", encryptRequest{
		DataBase64:   "not base64!!",
		CloudRegion:  "us-west-2",
		WorkloadType: "batch",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad base64, got %d", w.Code)
	}
}

func TestStoreAndFetchEndpoints(t *testing.T) {
	server := newTestServer(t, config.Config{})

	w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", encryptRequest{
		DataBase64:   base64.StdEncoding.EncodeToString([]byte("stored")),
		CloudRegion:  "eu-west-1",
		WorkloadType: "analytics",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("encrypt status %d", w.Code)
	}
	var pkg domain.WorkloadPackage
	if err := json.Unmarshal(w.Body.Bytes(), &pkg); err != nil {
		t.Fatalf("decode package: %v", err)
	}

	w = doJSON(t, server, http.MethodPost, "/v1/workloads/orders-1/store", pkg)
	if w.Code != http.StatusCreated {
		t.Fatalf("store status %d: %s", w.Code, w.Body.String())
	}
	var stored storeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode store response: %v", err)
	}
	if stored.Location != "mem://orders-1" || stored.RecordID == "" {
		t.Fatalf("unexpected store response: %+v", stored)
	}

	w = doJSON(t, server, http.MethodPost, "/v1/workloads/orders-1/store", pkg)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate name, got %d", w.Code)
	}

	w = doJSON(t, server, http.MethodGet, "/v1/workloads/orders-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status %d: %s", w.Code, w.Body.String())
	}
	var fetched domain.WorkloadPackage
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched package: %v", err)
	}
	if fetched != pkg {
		t.Fatalf("fetched package differs: %+v", fetched)
	}

	w = doJSON(t, server, http.MethodGet, "/v1/workloads/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown name, got %d", w.Code)
	}
}

func TestRateLimiting(t *testing.T) {
	cfg := config.Config{
		RateLimitRequests:      2,
		RateLimitWindowSeconds: 60,
	}
	server := newTestServer(t, cfg)

	body := encryptRequest{
		DataBase64:   base64.StdEncoding.EncodeToString([]byte("x")),
		CloudRegion:  "us-west-2",
		WorkloadType: "batch",
	}
	for i := 0; i < 2; i++ {
		w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", body)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status %d", i, w.Code)
		}
		if w.Header().Get("RateLimit-Limit") != "2" {
			t.Fatalf("missing rate limit headers on request %d", i)
		}
	}

	w := doJSON(t, server, http.MethodPost, "/v1/workloads/encrypt", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}

	// A different endpoint has its own counter.
	w = doJSON(t, server, http.MethodGet, "/v1/workloads/missing", nil)
	if w.Code == http.StatusTooManyRequests {
		t.Fatal("limit leaked across endpoints")
	}
}
