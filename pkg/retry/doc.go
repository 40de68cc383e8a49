// Package retry wraps a single upstream page fetch in bounded retries with
// backoff.
//
// Retrying is opt-in: the default configuration makes exactly one attempt.
// When enabled, only transient classified errors are retried (network
// failures, timeouts, 429 and 5xx responses); malformed responses and
// caller cancellation fail immediately.
//
// Basic usage:
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, func() (*curiouscat.Page, error) {
//		return client.FetchPage(ctx, username, cursor)
//	}, cfg)
//
// Waits between attempts honor ctx, so a cancelled export stops retrying
// immediately.
package retry
