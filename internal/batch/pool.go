package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"curiousqa/pkg/export"
	"curiousqa/pkg/logger"
)

// Job is one profile to export
type Job struct {
	Username string
}

// Result is the outcome of one Job
type Result struct {
	Job      Job
	Path     string
	Skipped  bool
	Size     int
	Duration time.Duration
	Err      error
}

// Exporter renders a profile's workbook
type Exporter interface {
	Export(ctx context.Context, username string) (*bytes.Buffer, error)
}

// Saver writes finished workbooks to disk
type Saver interface {
	Exists(filename string) bool
	Path(filename string) string
	SaveExport(r io.Reader, username, filename string) (string, error)
}

// Pool exports several profiles with a fixed number of workers. Results
// arrive on Results in completion order; the channel closes after Stop.
type Pool struct {
	numWorkers   int
	skipExisting bool
	jobs         chan Job
	results      chan Result
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	exporter     Exporter
	saver        Saver
	logger       logger.Logger
}

// NewPool creates a pool bound to ctx. Cancelling ctx abandons queued jobs
// and aborts the running exports.
func NewPool(ctx context.Context, numWorkers int, exporter Exporter, saver Saver, skipExisting bool, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		numWorkers:   numWorkers,
		skipExisting: skipExisting,
		jobs:         make(chan Job, numWorkers*2),
		results:      make(chan Result, numWorkers),
		ctx:          ctx,
		cancel:       cancel,
		exporter:     exporter,
		saver:        saver,
		logger:       log.WithField("component", "batch"),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.DebugWithFields("Starting export workers", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues job, blocking while the queue is full
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("export pool is shutting down: %w", p.ctx.Err())
	}
}

// Stop waits for queued jobs to finish, then closes Results. Call it once,
// after the last Submit.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Results delivers one Result per processed job
func (p *Pool) Results() <-chan Result {
	return p.results
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.ctx.Err() != nil {
			p.send(Result{Job: job, Err: p.ctx.Err()})
			continue
		}
		p.send(p.process(job, id))
	}
}

func (p *Pool) send(r Result) {
	// callers drain Results until Stop closes it
	p.results <- r
}

func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	filename := export.Filename(job.Username)

	if p.skipExisting && p.saver.Exists(filename) {
		result.Skipped = true
		result.Path = p.saver.Path(filename)
		result.Duration = time.Since(start)
		p.logger.DebugWithFields("Export already on disk", map[string]interface{}{
			"worker_id": workerID,
			"username":  job.Username,
		})
		return result
	}

	buf, err := p.exporter.Export(p.ctx, job.Username)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	result.Size = buf.Len()

	path, err := p.saver.SaveExport(buf, job.Username, filename)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		p.logger.WithError(err).ErrorWithFields("Failed to save export", map[string]interface{}{
			"worker_id": workerID,
			"username":  job.Username,
		})
		return result
	}
	result.Path = path

	p.logger.DebugWithFields("Export saved", map[string]interface{}{
		"worker_id": workerID,
		"username":  job.Username,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	return result
}

// Run exports every username through a fresh pool and returns the results
// in input order.
func Run(ctx context.Context, usernames []string, numWorkers int, exporter Exporter, saver Saver, skipExisting bool, log logger.Logger) []Result {
	pool := NewPool(ctx, numWorkers, exporter, saver, skipExisting, log)
	pool.Start()

	go func() {
		for _, u := range usernames {
			if err := pool.Submit(Job{Username: u}); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	byUser := make(map[string]Result, len(usernames))
	for r := range pool.Results() {
		byUser[r.Job.Username] = r
	}

	out := make([]Result, 0, len(usernames))
	for _, u := range usernames {
		r, ok := byUser[u]
		if !ok {
			r = Result{Job: Job{Username: u}, Err: fmt.Errorf("not exported: %w", context.Cause(ctx))}
		}
		out = append(out, r)
	}
	return out
}
