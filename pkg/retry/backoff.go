package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	errs "curiousqa/pkg/errors"
)

// Backoff yields the pause that follows a failed attempt (1-based).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to Backoff
type BackoffFunc func(attempt int) time.Duration

func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

// Constant pauses d after every failure
func Constant(d time.Duration) Backoff {
	return BackoffFunc(func(attempt int) time.Duration {
		if attempt <= 0 {
			return 0
		}
		return d
	})
}

// Exponential grows Initial by Factor per attempt up to Max. Jitter spreads
// each delay uniformly by ±Jitter of itself.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

func (e Exponential) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	factor := math.Max(e.Factor, 1)
	d := float64(e.Initial) * math.Pow(factor, float64(attempt-1))
	if e.Max > 0 {
		d = math.Min(d, float64(e.Max))
	}
	if e.Jitter > 0 {
		d += d * e.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

var defaultBackoff = Exponential{
	Initial: time.Second,
	Max:     30 * time.Second,
	Factor:  2,
	Jitter:  0.1,
}

// Schedule picks a Backoff per error classification. Types without an entry
// use the Config's Backoff.
type Schedule map[errs.ErrorType]Backoff

// UpstreamSchedule backs off slower on 429s than on everything else, which
// uses base.
func UpstreamSchedule(base Backoff) Schedule {
	return Schedule{
		errs.ErrorTypeNetwork: base,
		errs.ErrorTypeTimeout: base,
		errs.ErrorTypeStatus:  base,
		errs.ErrorTypeRateLimit: Exponential{
			Initial: 30 * time.Second,
			Max:     5 * time.Minute,
			Factor:  1.5,
			Jitter:  0.3,
		},
	}
}

// Wait blocks for delay or until ctx ends, whichever comes first. A
// non-positive delay only reports whether ctx is already done.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
