package model

import "time"

// RetryConfig defines retry behavior for calls against the platform API
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	Jitter            bool          `json:"jitter"`
}

// DefaultRetryConfig matches the platform's documented rate limits:
// few attempts, generous backoff.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      5 * time.Second,
	MaxDelay:          60 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}
