package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/scheduler"
)

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHandleHealthz(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, zap.NewNop(), nil)
	w := doRequest(t, s, "GET", "/healthz")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("status = %q, want alive", body["status"])
	}
}

func TestHandleReadyzNotReady(t *testing.T) {
	notReady := func(ctx context.Context) error { return errors.New("database unreachable") }
	s := New("127.0.0.1:0", nil, nil, zap.NewNop(), notReady)

	w := doRequest(t, s, "GET", "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "not ready" {
		t.Errorf("status = %q, want \"not ready\"", body["status"])
	}
}

func TestHandleSchedulerJobsEmpty(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil, zap.NewNop(), nil)
	w := doRequest(t, s, "GET", "/api/v1/scheduler/jobs")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var jobs []jobView
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("jobs = %v, want empty", jobs)
	}
}

func TestHandleSchedulerJobsListsCreatedJob(t *testing.T) {
	sched := scheduler.New(zap.NewNop(), scheduler.NewRealTimer(), nil)
	sched.Create(scheduler.Options{
		Interval: time.Minute,
		Tags:     []string{"icmp"},
		Command:  func(scheduler.Handle) error { return nil },
	})

	s := New("127.0.0.1:0", sched, nil, zap.NewNop(), nil)
	w := doRequest(t, s, "GET", "/api/v1/scheduler/jobs")

	var jobs []jobView
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	if jobs[0].Status != "waiting" {
		t.Errorf("status = %q, want waiting", jobs[0].Status)
	}
}
