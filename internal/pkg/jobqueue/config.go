package jobqueue

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/velomart/velomart/internal/pkg/env"
)

// Config controls the retry behavior of the webhook queue. Zero values are
// replaced with defaults by Normalize.
type Config struct {
	Concurrency   int
	MaxAttempts   int
	BaseBackoff   time.Duration
	BackoffFactor float64
	MaxBackoff    time.Duration
	MaxJitter     time.Duration
	TaskTimeout   time.Duration
	BufferSize    int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   2,
		MaxAttempts:   5,
		BaseBackoff:   500 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxBackoff:    30 * time.Second,
		MaxJitter:     250 * time.Millisecond,
		TaskTimeout:   30 * time.Second,
		BufferSize:    1024,
	}
}

// ConfigFromEnv builds a config from WEBHOOK_* environment variables,
// falling back to defaults for anything unset or unparsable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = envInt("WEBHOOK_CONCURRENCY", cfg.Concurrency)
	cfg.MaxAttempts = envInt("WEBHOOK_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.BaseBackoff = envDurationMS("WEBHOOK_BASE_BACKOFF_MS", cfg.BaseBackoff)
	cfg.BackoffFactor = envFloat("WEBHOOK_BACKOFF_FACTOR", cfg.BackoffFactor)
	cfg.MaxBackoff = envDurationMS("WEBHOOK_MAX_BACKOFF_MS", cfg.MaxBackoff)
	cfg.MaxJitter = envDurationMS("WEBHOOK_MAX_JITTER_MS", cfg.MaxJitter)
	cfg.TaskTimeout = envDurationMS("WEBHOOK_TASK_TIMEOUT_MS", cfg.TaskTimeout)
	return cfg
}

// AsyncEnabled reports whether webhook processing should go through the
// queue instead of running inline in the request handler.
func AsyncEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(env.GetEnv("WEBHOOK_ASYNC", "false")))
	return v == "true" || v == "1" || v == "yes"
}

// Normalize replaces non-positive fields with defaults. MaxAttempts is left
// alone so a misconfigured zero surfaces as a dead letter rather than being
// silently corrected.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = def.BaseBackoff
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.MaxJitter < 0 {
		c.MaxJitter = def.MaxJitter
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = def.TaskTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// BackoffFor returns the delay before retry number attempt (1-based):
// exponential growth capped at MaxBackoff, plus uniform jitter in
// [0, MaxJitter).
func (c Config) BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(c.BaseBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}
	delay := time.Duration(backoff)
	if c.MaxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.MaxJitter)))
	}
	return delay
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envDurationMS(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
