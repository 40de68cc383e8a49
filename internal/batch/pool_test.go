package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"curiousqa/pkg/logger"
	"curiousqa/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (f *fakeExporter) Export(ctx context.Context, username string) (*bytes.Buffer, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, username)
	err := f.fail[username]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString("workbook:" + username), nil
}

func newManager(t *testing.T) *storage.Manager {
	t.Helper()
	m, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestRunSavesEveryProfileInInputOrder(t *testing.T) {
	exp := &fakeExporter{delay: 10 * time.Millisecond}
	m := newManager(t)

	results := Run(context.Background(), []string{"alice", "bob", "carol"}, 2, exp, m, false, logger.NewNopLogger())

	require.Len(t, results, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		r := results[i]
		assert.Equal(t, name, r.Job.Username)
		require.NoError(t, r.Err)
		assert.False(t, r.Skipped)

		data, err := os.ReadFile(r.Path)
		require.NoError(t, err)
		assert.Equal(t, "workbook:"+name, string(data))
		assert.Equal(t, len(data), r.Size)
	}
	assert.Equal(t, 3, m.GetWrittenCount())
	assert.LessOrEqual(t, atomic.LoadInt32(&exp.peak), int32(2))
}

func TestRunReportsFailuresIndividually(t *testing.T) {
	upstream := errors.New("upstream down")
	exp := &fakeExporter{fail: map[string]error{"bob": upstream}}
	m := newManager(t)

	results := Run(context.Background(), []string{"alice", "bob"}, 1, exp, m, false, logger.NewNopLogger())

	require.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, upstream)
	assert.Empty(t, results[1].Path)
	assert.False(t, m.Exists("bob_questions_answers.xlsx"))
	assert.Equal(t, 1, m.GetWrittenCount())
}

func TestRunSkipsExistingFiles(t *testing.T) {
	exp := &fakeExporter{}
	m := newManager(t)
	require.NoError(t, os.WriteFile(m.Path("alice_questions_answers.xlsx"), []byte("old"), 0644))

	results := Run(context.Background(), []string{"alice", "bob"}, 2, exp, m, true, logger.NewNopLogger())

	assert.True(t, results[0].Skipped)
	assert.Equal(t, m.Path("alice_questions_answers.xlsx"), results[0].Path)
	assert.False(t, results[1].Skipped)
	assert.Equal(t, []string{"bob"}, exp.calls)
}

func TestRunCancelled(t *testing.T) {
	exp := &fakeExporter{delay: time.Second}
	m := newManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := Run(ctx, []string{"alice", "bob", "carol"}, 1, exp, m, false, logger.NewNopLogger())

	assert.Less(t, time.Since(start), 900*time.Millisecond)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 0, m.GetWrittenCount())
}

func TestPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPool(ctx, 1, &fakeExporter{}, newManager(t), false, logger.NewNopLogger())
	// fill the buffered queue so Submit has to observe cancellation
	for i := 0; i < 2; i++ {
		p.jobs <- Job{Username: "x"}
	}
	err := p.Submit(Job{Username: "alice"})
	assert.ErrorIs(t, err, context.Canceled)
}
