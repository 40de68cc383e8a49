package curiouscat

import (
	"context"
	"time"

	"curiousqa/pkg/logger"
	"curiousqa/pkg/ratelimit"
	"curiousqa/pkg/retry"

	json "github.com/goccy/go-json"
)

// PageFetcher fetches one page of posts older than cursor
type PageFetcher interface {
	FetchPage(ctx context.Context, username string, cursor int64) (*Page, error)
}

// PageFunc receives every non-empty page in fetch order, together with the
// cursor it was requested with. Returning an error stops the walk.
type PageFunc func(page *Page, cursor int64) error

// StopReason tells why a walk ended without error
type StopReason string

const (
	// StopExhausted means the API returned an empty posts array
	StopExhausted StopReason = "exhausted"
	// StopNoCursor means a page yielded no cursor older than the current one
	StopNoCursor StopReason = "no_further_content"
)

// WalkResult summarizes a walk
type WalkResult struct {
	// Pages counts requests that returned a page, the final empty one included
	Pages int
	// Cursors lists the max_timestamp of every request, in order
	Cursors []int64
	Reason  StopReason
}

// Paginator walks a profile backward in time, one page per request
type Paginator struct {
	fetcher PageFetcher
	delay   time.Duration
	limiter ratelimit.Limiter
	retry   *retry.Config
	logger  logger.Logger
}

// Option configures a Paginator
type Option func(*Paginator)

// WithLimiter makes every request draw from l first
func WithLimiter(l ratelimit.Limiter) Option {
	return func(p *Paginator) {
		p.limiter = l
	}
}

// WithRetry retries a failing page fetch according to cfg
func WithRetry(cfg *retry.Config) Option {
	return func(p *Paginator) {
		p.retry = cfg
	}
}

// NewPaginator creates a paginator that waits delay between pages
func NewPaginator(fetcher PageFetcher, delay time.Duration, log logger.Logger, opts ...Option) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	p := &Paginator{
		fetcher: fetcher,
		delay:   delay,
		logger:  log.WithField("component", "paginator"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Walk requests pages starting at cursor until the API returns an empty
// page or no older cursor can be derived. Any fetch error aborts the walk.
func (p *Paginator) Walk(ctx context.Context, username string, cursor int64, fn PageFunc) (*WalkResult, error) {
	result := &WalkResult{}

	for {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		result.Cursors = append(result.Cursors, cursor)
		page, err := p.fetch(ctx, username, cursor)
		if err != nil {
			return result, err
		}
		result.Pages++

		posts := page.Posts()
		logger.LogPage(p.logger, username, result.Pages, cursor, len(posts), len(page.Entries)-len(posts))

		if page.Exhausted() {
			result.Reason = StopExhausted
			return result, nil
		}

		if err := fn(page, cursor); err != nil {
			return result, err
		}

		next, ok := NextCursor(page, cursor)
		if !ok {
			p.logger.WarnWithFields("page has no usable cursor, stopping", map[string]interface{}{
				"username": username,
				"cursor":   cursor,
				"entries":  len(page.Entries),
			})
			result.Reason = StopNoCursor
			return result, nil
		}
		cursor = next

		if err := retry.Wait(ctx, p.delay); err != nil {
			return result, err
		}
	}
}

func (p *Paginator) fetch(ctx context.Context, username string, cursor int64) (*Page, error) {
	if p.retry == nil {
		return p.fetcher.FetchPage(ctx, username, cursor)
	}
	return retry.DoWithResult(ctx, func() (*Page, error) {
		return p.fetcher.FetchPage(ctx, username, cursor)
	}, p.retry)
}

// NextCursor derives the cursor for the page after page, which was requested
// with current. The result is always strictly below current; ok is false
// when nothing on the page allows that.
//
// The oldest post timestamp minus one is preferred. A page holding only
// non-post entries falls back to a numeric max_timestamp in its metadata,
// then to the oldest timestamp any of its entries carries, minus one.
func NextCursor(page *Page, current int64) (int64, bool) {
	var oldest Timestamp
	found := false
	for _, e := range page.Entries {
		if !e.IsPost() || e.Post.Timestamp <= 0 {
			continue
		}
		if !found || e.Post.Timestamp < oldest {
			oldest = e.Post.Timestamp
			found = true
		}
	}
	if found && int64(oldest)-1 < current {
		return int64(oldest) - 1, true
	}

	if raw, ok := page.Metadata["max_timestamp"]; ok {
		var ts Timestamp
		if err := json.Unmarshal(raw, &ts); err == nil && ts > 0 && int64(ts) < current {
			return int64(ts), true
		}
	}

	found = false
	for _, e := range page.Entries {
		if e.IsPost() {
			continue
		}
		if ts, ok := e.noiseTimestamp(); ok && (!found || ts < oldest) {
			oldest = ts
			found = true
		}
	}
	if found && int64(oldest)-1 < current {
		return int64(oldest) - 1, true
	}

	return 0, false
}
