package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
	"github.com/calderbuild/BenchScope/internal/sink"
)

type stubStore struct {
	stats    sink.StoreStats
	unsynced []model.ScoredCandidate
	err      error
}

func (s *stubStore) Stats(_ context.Context) (sink.StoreStats, error) {
	return s.stats, s.err
}

func (s *stubStore) LoadUnsynced(_ context.Context) ([]model.ScoredCandidate, error) {
	return s.unsynced, s.err
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(_ context.Context) error { return p.err }

func doRequest(t *testing.T, srv *Server, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.router().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, body
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubStore{}, &stubPinger{}, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/health")
	if code != http.StatusOK || body["status"] != "success" {
		t.Fatalf("health = %d %v", code, body)
	}
	data := body["data"].(map[string]any)
	if data["service"] != "benchscope" || data["primary_sink"] != "ok" {
		t.Fatalf("health data wrong: %v", data)
	}
}

func TestHandleHealthDegraded(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubStore{}, &stubPinger{err: errors.New("401")}, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/health")
	if code != http.StatusOK {
		t.Fatalf("health must stay 200 when the sink is down, got %d", code)
	}
	data := body["data"].(map[string]any)
	if data["primary_sink"] != "unreachable" {
		t.Fatalf("primary_sink = %v, want unreachable", data["primary_sink"])
	}

	srv = NewServer(&stubStore{}, nil, zerolog.Nop(), Options{})
	_, body = doRequest(t, srv, "/v1/health")
	data = body["data"].(map[string]any)
	if data["primary_sink"] != "unconfigured" {
		t.Fatalf("primary_sink = %v, want unconfigured", data["primary_sink"])
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubStore{stats: sink.StoreStats{Total: 12, Unsynced: 3}}, nil, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/stats")
	if code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	data := body["data"].(map[string]any)
	if data["total"] != float64(12) || data["unsynced"] != float64(3) {
		t.Fatalf("stats data wrong: %v", data)
	}
}

func TestHandleStatsError(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubStore{err: errors.New("db locked")}, nil, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/stats")
	if code != http.StatusInternalServerError || body["status"] != "error" {
		t.Fatalf("stats error = %d %v", code, body)
	}
}

func TestHandleUnsynced(t *testing.T) {
	t.Parallel()

	store := &stubStore{unsynced: []model.ScoredCandidate{
		{RawCandidate: model.RawCandidate{Title: "A", URL: "https://example.com/a", Source: "arxiv"}},
	}}
	srv := NewServer(store, nil, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/candidates/unsynced")
	if code != http.StatusOK {
		t.Fatalf("unsynced status = %d", code)
	}
	data := body["data"].(map[string]any)
	if data["count"] != float64(1) {
		t.Fatalf("unsynced count wrong: %v", data)
	}

	// Empty backlog renders as an empty list, not null.
	srv = NewServer(&stubStore{}, nil, zerolog.Nop(), Options{})
	_, body = doRequest(t, srv, "/v1/candidates/unsynced")
	data = body["data"].(map[string]any)
	if _, ok := data["candidates"].([]any); !ok {
		t.Fatalf("candidates should be a list: %v", data["candidates"])
	}
}

func TestUnknownRouteFails(t *testing.T) {
	t.Parallel()

	srv := NewServer(&stubStore{}, nil, zerolog.Nop(), Options{})
	code, body := doRequest(t, srv, "/v1/nope")
	if code != http.StatusNotFound || body["status"] != "fail" {
		t.Fatalf("unknown route = %d %v", code, body)
	}
}
