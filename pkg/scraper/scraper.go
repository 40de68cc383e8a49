package scraper

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"curiousqa/pkg/config"
	"curiousqa/pkg/curiouscat"
	"curiousqa/pkg/errors"
	"curiousqa/pkg/export"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/metrics"
	"curiousqa/pkg/qa"
	"curiousqa/pkg/ratelimit"
	"curiousqa/pkg/retry"
)

// Options controls the orchestration behaviors that are off by default
type Options struct {
	// WriteBack saves the merged snapshot after a successful walk and
	// enables deduplication of re-fetched posts.
	WriteBack bool
	// ExportTTL keeps finished workbooks for this long; 0 disables.
	ExportTTL     time.Duration
	ExportCacheMB int
}

// Result is the outcome of collecting one profile
type Result struct {
	Username string
	Records  []qa.Record
	Snapshot *curiouscat.Snapshot
	// Pages counts API requests that returned a page
	Pages int
	// Added counts posts appended to the cached snapshot
	Added    int
	Reason   curiouscat.StopReason
	Duration time.Duration
}

// Scraper runs read cache, walk pages, merge, transform and export for one
// username at a time. It is safe for concurrent use.
type Scraper struct {
	walker    PageWalker
	store     SnapshotStore
	exports   ExportCache
	metrics   metrics.Recorder
	logger    logger.Logger
	writeBack bool
	locks     *keyedMutex
	now       func() time.Time
}

// New wires a Scraper against the real API as described by cfg
func New(cfg *config.Config, store SnapshotStore, rec metrics.Recorder, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}

	client := curiouscat.NewClient(cfg.CuriousCat, log)

	var opts []curiouscat.Option
	if limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute); limiter != nil {
		opts = append(opts, curiouscat.WithLimiter(limiter))
	}
	if cfg.Retry.MaxAttempts > 1 {
		opts = append(opts, curiouscat.WithRetry(retry.FromConfig(cfg.Retry, log)))
	}
	walker := curiouscat.NewPaginator(client, cfg.CuriousCat.PageDelay, log, opts...)

	return NewWithWalker(walker, store, Options{
		WriteBack:     cfg.Cache.WriteBack,
		ExportTTL:     cfg.Cache.ExportTTL,
		ExportCacheMB: cfg.Cache.ExportCacheMB,
	}, rec, log)
}

// NewWithWalker builds a Scraper around an existing walker
func NewWithWalker(walker PageWalker, store SnapshotStore, opts Options, rec metrics.Recorder, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Scraper{
		walker:    walker,
		store:     store,
		exports:   NewExportCache(opts.ExportTTL, opts.ExportCacheMB),
		metrics:   rec,
		logger:    log.WithField("component", "scraper"),
		writeBack: opts.WriteBack,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Normalize sanitizes and validates a username as typed by a user
func Normalize(input string) (string, error) {
	username := curiouscat.SanitizeUsername(input)
	if username == "" {
		return "", errors.Invalid("username is required")
	}
	if !curiouscat.IsValidUsername(username) {
		return "", errors.Invalid(fmt.Sprintf("invalid username %q", username))
	}
	return username, nil
}

// Collect gathers every question/answer pair of username. Any upstream
// failure aborts the whole collection; nothing partial is returned.
func (s *Scraper) Collect(ctx context.Context, username string) (*Result, error) {
	username, err := Normalize(username)
	if err != nil {
		return nil, err
	}

	if s.writeBack {
		unlock := s.locks.Lock(username)
		defer unlock()
	}

	start := time.Now()

	snap, err := s.store.Load(ctx, username)
	if err != nil {
		return nil, errors.Storage(fmt.Errorf("loading snapshot for %s: %w", username, err))
	}
	cached := len(snap.Posts)
	cursor := snap.Cursor(s.now().Unix()) - 1

	s.logger.DebugWithFields("Starting profile walk", map[string]interface{}{
		"username":     username,
		"cached_posts": cached,
		"cursor":       cursor,
	})

	merger := qa.NewMerger(snap, s.writeBack)
	added := 0
	walk, err := s.walker.Walk(ctx, username, cursor, func(page *curiouscat.Page, _ int64) error {
		added += merger.Add(page)
		return nil
	})
	if walk != nil {
		s.metrics.AddPages(walk.Pages)
	}
	if err != nil {
		// the request deadline expiring mid-walk is reported like an upstream timeout
		if errors.TypeOf(err) == errors.ErrorTypeUnknown && stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Timeout(err)
		}
		return nil, fmt.Errorf("walking profile of %s: %w", username, err)
	}

	merged := merger.Snapshot()
	if s.writeBack {
		if err := s.store.Save(ctx, username, merged); err != nil {
			return nil, errors.Storage(fmt.Errorf("saving snapshot for %s: %w", username, err))
		}
	}

	return &Result{
		Username: username,
		Records:  qa.Extract(merged.Posts),
		Snapshot: merged,
		Pages:    walk.Pages,
		Added:    added,
		Reason:   walk.Reason,
		Duration: time.Since(start),
	}, nil
}

// Export collects username and renders the records as a workbook
func (s *Scraper) Export(ctx context.Context, username string) (*bytes.Buffer, error) {
	start := time.Now()

	name, err := Normalize(username)
	if err != nil {
		s.metrics.IncExports(resultLabel(err))
		return nil, err
	}

	if data, ok := s.exports.Get(name); ok {
		s.metrics.IncExportCacheHits()
		s.metrics.IncExports(metrics.ResultOK)
		s.logger.DebugWithFields("Export served from cache", map[string]interface{}{
			"username": name,
			"bytes":    len(data),
		})
		return bytes.NewBuffer(data), nil
	}
	s.metrics.IncExportCacheMisses()

	buf, pages, records, err := s.export(ctx, name)
	duration := time.Since(start)

	s.metrics.IncExports(resultLabel(err))
	s.metrics.ObserveExportDuration(duration)
	logger.LogExport(s.logger, name, pages, records, duration, err)

	if err != nil {
		return nil, err
	}
	if err := s.exports.Set(name, buf.Bytes()); err != nil {
		s.metrics.IncExportCacheErrors()
		s.logger.WithError(err).WarnWithFields("Export not cached", map[string]interface{}{
			"username": name,
			"bytes":    buf.Len(),
		})
	}
	return buf, nil
}

func (s *Scraper) export(ctx context.Context, username string) (*bytes.Buffer, int, int, error) {
	res, err := s.Collect(ctx, username)
	if err != nil {
		return nil, 0, 0, err
	}
	s.metrics.ObserveRecords(len(res.Records))

	buf, err := export.WriteXLSX(res.Records)
	if err != nil {
		return nil, res.Pages, len(res.Records), fmt.Errorf("building workbook: %w", err)
	}
	return buf, res.Pages, len(res.Records), nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.IsUpstream(err):
		return metrics.ResultUpstream
	case errors.TypeOf(err) == errors.ErrorTypeInvalid:
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
