package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
	"github.com/Strob0t/TierVault/internal/metrics"
	"github.com/Strob0t/TierVault/internal/service"
)

type fakeStorage struct {
	data     map[string][]byte
	rejectAs bool // when true, Store reports no tier accepted the write
	lastOpts record.StoreOptions
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string][]byte)}
}

func (f *fakeStorage) Retrieve(_ context.Context, key record.Key) ([]byte, error) {
	v, ok := f.data[key.String()]
	if !ok {
		return nil, record.ErrNotFound
	}
	return v, nil
}

func (f *fakeStorage) Store(_ context.Context, key record.Key, data []byte, opts record.StoreOptions) bool {
	f.lastOpts = opts
	if f.rejectAs {
		return false
	}
	f.data[key.String()] = data
	return true
}

func (f *fakeStorage) Delete(_ context.Context, key record.Key) error {
	delete(f.data, key.String())
	return nil
}

func (f *fakeStorage) Metrics() metrics.Snapshot {
	return metrics.Snapshot{L1: metrics.CacheTier{Hits: 7, Misses: 3, HitRate: 0.7}}
}

func (f *fakeStorage) PatternAnalysis() access.Analysis {
	return access.Analysis{Hot: 1, Cold: 2, Total: 3}
}

type fakeLifecycle struct {
	rep Report
	err error
}

// Report aliases the lifecycle report to keep the test table readable.
type Report = service.Report

func (f *fakeLifecycle) Run(context.Context) (service.Report, error) {
	return f.rep, f.err
}

func newTestServer(storage *fakeStorage, lc *fakeLifecycle) *httptest.Server {
	r := chi.NewRouter()
	MountRoutes(r, NewHandlers(storage, lc))
	return httptest.NewServer(r)
}

func doRequest(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(newFakeStorage(), &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodGet, srv.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}

func TestPutThenGetRecord(t *testing.T) {
	storage := newFakeStorage()
	srv := newTestServer(storage, &fakeLifecycle{})
	defer srv.Close()

	url := srv.URL + "/v1/records/medical_record/patient-7?priority=high&ttl=10m"
	resp := doRequest(t, http.MethodPut, url, []byte("vitals"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("put status %d, want 201", resp.StatusCode)
	}

	var sr storeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatal(err)
	}
	if !sr.Stored {
		t.Fatal("expected stored response")
	}
	if len(sr.Tiers) != 3 {
		t.Fatalf("high priority placed in %v, want 3 tiers", sr.Tiers)
	}
	if storage.lastOpts.Priority != record.PriorityHigh {
		t.Fatalf("priority %v, want high", storage.lastOpts.Priority)
	}

	resp = doRequest(t, http.MethodGet, srv.URL+"/v1/records/medical_record/patient-7", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d, want 200", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "vitals" {
		t.Fatalf("payload %q, want vitals", buf.String())
	}
}

func TestGetRecordNotFound(t *testing.T) {
	srv := newTestServer(newFakeStorage(), &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/records/metadata/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestPutRecordValidation(t *testing.T) {
	srv := newTestServer(newFakeStorage(), &fakeLifecycle{})
	defer srv.Close()

	tests := []struct {
		name string
		url  string
		body string
	}{
		{"unknown data type", "/v1/records/selfie/x", "data"},
		{"unknown priority", "/v1/records/content/x?priority=urgent", "data"},
		{"bad ttl", "/v1/records/content/x?ttl=soon", "data"},
		{"negative ttl", "/v1/records/content/x?ttl=-5m", "data"},
		{"unknown tier", "/v1/records/content/x?tier=glacier", "data"},
		{"empty payload", "/v1/records/content/x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPut, srv.URL+tt.url, []byte(tt.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestPutRecordAllTiersDown(t *testing.T) {
	storage := newFakeStorage()
	storage.rejectAs = true
	srv := newTestServer(storage, &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodPut, srv.URL+"/v1/records/content/x", []byte("data"))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
}

func TestPutRecordForcedTier(t *testing.T) {
	storage := newFakeStorage()
	srv := newTestServer(storage, &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodPut, srv.URL+"/v1/records/content/x?tier=memory", []byte("data"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}
	if storage.lastOpts.ForceTier == nil || *storage.lastOpts.ForceTier != record.TierMemory {
		t.Fatalf("forced tier %v, want memory", storage.lastOpts.ForceTier)
	}
}

func TestDeleteRecord(t *testing.T) {
	storage := newFakeStorage()
	storage.data["doc-1:content"] = []byte("data")
	srv := newTestServer(storage, &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodDelete, srv.URL+"/v1/records/content/doc-1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d, want 204", resp.StatusCode)
	}
	if len(storage.data) != 0 {
		t.Fatal("record not deleted")
	}
}

func TestStorageMetricsEndpoint(t *testing.T) {
	srv := newTestServer(newFakeStorage(), &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/storage/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.L1.HitRate != 0.7 {
		t.Fatalf("l1 hit rate %v, want 0.7", snap.L1.HitRate)
	}
}

func TestPatternAnalysisEndpoint(t *testing.T) {
	srv := newTestServer(newFakeStorage(), &fakeLifecycle{})
	defer srv.Close()

	resp := doRequest(t, http.MethodGet, srv.URL+"/v1/storage/analysis", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var a access.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatal(err)
	}
	if a.Total != 3 {
		t.Fatalf("total %d, want 3", a.Total)
	}
}

func TestRunLifecycleEndpoint(t *testing.T) {
	lc := &fakeLifecycle{rep: Report{Evicted: 2, Migrated: 1}}
	srv := newTestServer(newFakeStorage(), lc)
	defer srv.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/lifecycle/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	var rep Report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatal(err)
	}
	if rep.Evicted != 2 || rep.Migrated != 1 {
		t.Fatalf("report %+v", rep)
	}
}

func TestRunLifecyclePassFailure(t *testing.T) {
	lc := &fakeLifecycle{rep: Report{Evicted: 2}, err: errors.New("migrate cold: archive down")}
	srv := newTestServer(newFakeStorage(), lc)
	defer srv.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/lifecycle/run", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}

	var body struct {
		Report Report `json:"report"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Report.Evicted != 2 || !strings.Contains(body.Error, "archive down") {
		t.Fatalf("body %+v", body)
	}
}
