// Package testutil holds helpers shared by HTTP and store tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TimurManjosov/horizons/internal/api"
	"github.com/TimurManjosov/horizons/internal/probe"
	"github.com/TimurManjosov/horizons/internal/store"
)

// NewTestServer creates a test server with in-memory store for testing.
func NewTestServer(t *testing.T, opts ...api.Option) (*api.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	server := api.NewServer(memStore, opts...)
	return server, memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SampleReport builds a small finished report: a control result and one
// package that declares a constraint and only works on the newest version.
func SampleReport(id string, started time.Time) probe.Report {
	oldestControl := probe.Version("v18.20.8")
	oldestPkg := probe.Version("v22.20.0")
	newest := probe.Version("v22.20.0")
	msg := `wanted: {"node":">=22"}`

	return probe.Report{
		SchemaVersion: probe.SchemaVersion,
		ID:            id,
		Engine:        "node",
		SearchMode:    probe.SearchBinary,
		Versions:      []probe.Version{"v18.20.8", "v20.19.5", "v22.20.0"},
		StartedAt:     started,
		FinishedAt:    started.Add(2 * time.Minute),
		Results: []probe.PackageResult{
			{
				PackageName:             probe.ControlName,
				OldestCompatibleVersion: &oldestControl,
				NewestTestedVersion:     &newest,
				Trials: []probe.TrialRecord{
					{Version: "v20.19.5", Success: true},
					{Version: "v18.20.8", Success: true},
				},
			},
			{
				PackageName:                    "vitest",
				DeclaresEngineConstraint:       true,
				OldestCompatibleVersion:        &oldestPkg,
				NewestTestedVersion:            &newest,
				FirstDeclaredConstraintMessage: &msg,
				Trials: []probe.TrialRecord{
					{Version: "v20.19.5", Reason: probe.ReasonDeclaredConstraintViolation},
					{Version: "v22.20.0", Success: true},
				},
			},
		},
	}
}

// SeedReports populates the store with test reports.
func SeedReports(ctx context.Context, st store.Store, reports []probe.Report) error {
	for _, r := range reports {
		if err := st.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
