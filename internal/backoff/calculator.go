// Package backoff centralizes retry delay calculation for the client.
package backoff

import (
	"math/rand"
	"time"
)

// Calculator computes capped exponential backoff with proportional jitter.
type Calculator struct {
	base   time.Duration
	max    time.Duration
	jitter float64
}

// NewCalculator creates a calculator. jitter is the fraction of the computed
// delay added as uniform random noise and is clamped to [0, 1].
func NewCalculator(base, max time.Duration, jitter float64) *Calculator {
	if base <= 0 {
		base = time.Millisecond
	}
	if max < base {
		max = base
	}
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &Calculator{base: base, max: max, jitter: jitter}
}

// Delay returns the wait before the given 1-based attempt:
// min(max, base * 2^(attempt-1)) plus uniform jitter in [0, jitter*delay).
// The jitter rides on top of the cap, so the worst case is max*(1+jitter).
func (c *Calculator) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		attempt = 30 // overflow guard
	}

	delay := time.Duration(float64(c.base) * Pow(2, attempt-1))
	if delay < 0 || delay > c.max {
		delay = c.max
	}
	if c.jitter > 0 {
		delay += time.Duration(float64(delay) * c.jitter * rand.Float64())
	}
	return delay
}

// Pow is an integer-exponent power helper avoiding math.Pow on hot paths.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
