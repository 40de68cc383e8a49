// Package ratelimit caps how often the exporter calls the CuriousCat API.
//
// A single TokenBucket is shared by every export running in the process, so
// concurrent downloads for different users draw from the same budget. The
// bucket refills completely once per period.
//
// Usage:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if limiter != nil {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package ratelimit
