package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"curiousqa/pkg/config"
	errs "curiousqa/pkg/errors"
	"curiousqa/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts; 1 disables retrying
	MaxAttempts int
	// Backoff applies to errors the Schedule does not cover
	Backoff  Backoff
	Schedule Schedule
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a configuration that makes a single attempt
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 1,
		Backoff:     defaultBackoff,
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// FromConfig builds a retry configuration from the retry config section
// A multiplier of 1 means a flat delay between attempts.
func FromConfig(cfg config.RetryConfig, log logger.Logger) *Config {
	var backoff Backoff = Exponential{
		Initial: cfg.InitialDelay,
		Max:     cfg.MaxDelay,
		Factor:  cfg.BackoffMultiplier,
		Jitter:  0.1,
	}
	if cfg.BackoffMultiplier == 1 {
		backoff = Constant(cfg.InitialDelay)
	}

	return &Config{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     backoff,
		Schedule:    UpstreamSchedule(backoff),
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries classified errors whose type is transient
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		if apiErr.Type == errs.ErrorTypeStatus {
			return errs.IsRetryableStatusCode(apiErr.Code)
		}
		return errs.IsRetryable(apiErr.Type)
	}

	// Unclassified errors, including caller cancellation, are final
	return false
}

func (cfg *Config) backoffFor(err error) Backoff {
	if b, ok := cfg.Schedule[errs.TypeOf(err)]; ok && b != nil {
		return b
	}
	if cfg.Backoff != nil {
		return cfg.Backoff
	}
	return defaultBackoff
}

// Do executes op until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx ends. The last operation error is returned unwrapped so
// callers can still classify it.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}

		if attempt >= maxAttempts {
			if maxAttempts > 1 && cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": err.Error(),
				})
			}
			return err
		}

		delay := cfg.backoffFor(err).Delay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": maxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
					"attempt": attempt,
					"reason":  werr.Error(),
				})
			}
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}
