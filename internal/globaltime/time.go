// Package globaltime is the mockable clock behind every age-sensitive
// decision in the pipeline: dedup windows, candidate age for freshness
// boosts and staleness drops, and fallback-store retention. Pinning it in
// tests makes those cutoffs deterministic.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

// Now returns the current time, or the pinned time under SetMockTime.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
