package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// fakeQueue hands out a fixed request list, then blocks until the
// context ends.
type fakeQueue struct {
	mu   sync.Mutex
	reqs []site.CrawlRequest
}

func (q *fakeQueue) Enqueue(_ context.Context, req site.CrawlRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (site.CrawlRequest, error) {
	q.mu.Lock()
	if len(q.reqs) > 0 {
		req := q.reqs[0]
		q.reqs = q.reqs[1:]
		q.mu.Unlock()
		return req, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return site.CrawlRequest{}, ctx.Err()
}

type fakeRunner struct {
	mu    sync.Mutex
	seen  []string
	errs  map[string]error
	done  chan struct{}
	count int
}

func (r *fakeRunner) CrawlSite(_ context.Context, siteID string) (site.CrawlResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, siteID)
	r.count++
	if r.done != nil {
		select {
		case r.done <- struct{}{}:
		default:
		}
	}
	if err, ok := r.errs[siteID]; ok {
		return site.CrawlResult{}, err
	}
	return site.CrawlResult{SiteID: siteID, PageCount: 1}, nil
}

func (r *fakeRunner) sites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestWorkerProcessesRequests(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{reqs: []site.CrawlRequest{{SiteID: "a"}, {SiteID: "b"}}}
	runner := &fakeRunner{done: make(chan struct{}, 2)}
	w := New(queue, runner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-runner.done:
		case <-time.After(time.Second):
			t.Fatal("worker did not process request in time")
		}
	}
	cancel()

	require.Eventually(t, func() bool {
		return len(runner.sites()) == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"a", "b"}, runner.sites())
}

func TestWorkerSurvivesRunnerErrors(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{reqs: []site.CrawlRequest{
		{SiteID: "busy"},
		{SiteID: "gone"},
		{SiteID: "broken"},
		{SiteID: "fine"},
	}}
	runner := &fakeRunner{
		done: make(chan struct{}, 4),
		errs: map[string]error{
			"busy":   site.ErrCrawlInProgress,
			"gone":   site.ErrNotFound,
			"broken": errors.New("boom"),
		},
	}
	w := New(queue, runner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 4; i++ {
		select {
		case <-runner.done:
		case <-time.After(time.Second):
			t.Fatal("worker did not process request in time")
		}
	}
	cancel()

	require.Eventually(t, func() bool {
		return len(runner.sites()) == 4
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"busy", "gone", "broken", "fine"}, runner.sites())
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{}
	runner := &fakeRunner{}
	w := New(queue, runner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
