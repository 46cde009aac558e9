package counter

import (
	"sort"
	"sync"
)

// Well-known pipeline counters. Registries accept arbitrary names, these are
// the ones the webhook pipeline increments.
const (
	WebhookReceived         = "webhook_received"
	WebhookEnqueued         = "webhook_enqueued"
	WebhookProcessedSuccess = "webhook_processed_success"
	WebhookProcessedFailure = "webhook_processed_failure"
	WebhookRetryAttempts    = "webhook_retry_attempts"
	WebhookDeadLetterCount  = "webhook_deadletter_count"
	RevenueTotal            = "revenue_total"
)

// Registry holds process-wide named counters. Counters only reset on process
// restart; no persistence. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]int64
}

// NewRegistry creates an empty registry with the well-known counters at zero.
func NewRegistry() *Registry {
	return &Registry{
		counters: map[string]int64{
			WebhookReceived:         0,
			WebhookEnqueued:         0,
			WebhookProcessedSuccess: 0,
			WebhookProcessedFailure: 0,
			WebhookRetryAttempts:    0,
			WebhookDeadLetterCount:  0,
			RevenueTotal:            0,
		},
	}
}

// Inc increments a counter by one.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add increments a counter by delta.
func (r *Registry) Add(name string, delta int64) {
	r.mu.Lock()
	r.counters[name] += delta
	r.mu.Unlock()
}

// AddRevenue adds a processed charge amount to the cumulative revenue total.
func (r *Registry) AddRevenue(amount int64) {
	r.Add(RevenueTotal, amount)
}

// Get returns the current value of a counter (zero if never written).
func (r *Registry) Get(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Snapshot returns a copy of all counters.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

// Names returns all counter names, sorted for stable output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.counters))
	for k := range r.counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry backs the package-level helpers. Components that need
// isolation (tests) take a *Registry instead.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
