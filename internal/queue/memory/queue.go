// Package memory provides a bounded in-memory crawl request queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/llmstxt-dev/llmstxt-service/internal/site"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan site.CrawlRequest
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan site.CrawlRequest, capacity),
	}
}

// Enqueue pushes a crawl request into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, req site.CrawlRequest) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- req:
		return nil
	}
}

// Dequeue pops the next crawl request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (site.CrawlRequest, error) {
	select {
	case <-ctx.Done():
		return site.CrawlRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return site.CrawlRequest{}, errors.New("queue closed")
		}
		return req, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
