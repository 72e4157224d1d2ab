package config

import "testing"

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		ScoringTimeoutSecs:    30,
		ScoringConcurrency:    8,
		CacheTTLDays:          7,
		FallbackRetentionDays: 7,
		FallbackDBPath:        "fallback.db",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.ScoringTimeoutSecs = 0 }},
		{"zero concurrency", func(c *Config) { c.ScoringConcurrency = 0 }},
		{"zero cache ttl", func(c *Config) { c.CacheTTLDays = 0 }},
		{"zero retention", func(c *Config) { c.FallbackRetentionDays = 0 }},
		{"empty fallback path", func(c *Config) { c.FallbackDBPath = "  " }},
	}
	for _, tc := range cases {
		cfg := valid
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestSinkConfigured(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SinkAppID:     "id",
		SinkAppSecret: "secret",
		SinkAppToken:  "token",
		SinkTableID:   "table",
	}
	if !cfg.SinkConfigured() {
		t.Fatalf("fully populated sink should be configured")
	}
	cfg.SinkTableID = ""
	if cfg.SinkConfigured() {
		t.Fatalf("missing table ID should not be configured")
	}
}

func TestDedupWindowDaysFor(t *testing.T) {
	t.Parallel()

	rules := DefaultCuration().Dedup
	cases := map[string]int{
		"arxiv":       7,
		"github":      30,
		"huggingface": 14,
		"twitter":     7,
		"unknown":     rules.DefaultWindowDays,
	}
	for source, want := range cases {
		if got := rules.WindowDaysFor(source); got != want {
			t.Fatalf("WindowDaysFor(%q) = %d, want %d", source, got, want)
		}
	}
}
