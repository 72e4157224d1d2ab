package scoring

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
	scoreschema "github.com/calderbuild/BenchScope/schema"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	cand := model.RawCandidate{Title: "AgentScale", URL: "https://example.com/agentscale"}
	key := Key(cand)
	if !strings.HasPrefix(key, "benchscope:score:") {
		t.Fatalf("key %q missing prefix", key)
	}
	if key != Key(cand) {
		t.Fatalf("key is not stable across calls")
	}

	other := cand
	other.URL = "https://example.com/other"
	if Key(other) == key {
		t.Fatalf("different URLs must yield different keys")
	}
}

func TestLocalCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache := NewLocalCache(zerolog.Nop())
	ctx := context.Background()
	cand := model.RawCandidate{Title: "AgentScale", URL: "https://example.com/agentscale"}

	if got := cache.Get(ctx, cand); got != nil {
		t.Fatalf("empty cache returned %+v", got)
	}

	resp := &scoreschema.ScoreResponse{ActivityScore: 8, TaskDomain: "Agent"}
	cache.Put(ctx, cand, resp)

	got := cache.Get(ctx, cand)
	if got == nil || got.ActivityScore != 8 || got.TaskDomain != "Agent" {
		t.Fatalf("cached response = %+v", got)
	}

	if err := cache.Ping(ctx); err == nil {
		t.Fatalf("local-only cache should report redis as unavailable")
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("close local-only cache: %v", err)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	t.Parallel()

	var cache *Cache
	ctx := context.Background()
	cand := model.RawCandidate{Title: "T", URL: "https://example.com/t"}

	cache.Put(ctx, cand, &scoreschema.ScoreResponse{})
	if got := cache.Get(ctx, cand); got != nil {
		t.Fatalf("nil cache returned %+v", got)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("nil cache close: %v", err)
	}
}
