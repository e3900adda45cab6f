package queue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mergington/internal/types"
)

// InProc is a bounded in-memory channel with a fixed worker pool. Requests
// submitted after the buffer fills are rejected immediately rather than
// blocking the caller.
type InProc struct {
	requests chan types.NotificationRequest
	handler  Handler
	logger   types.Logger
	group    *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

var _ Channel = (*InProc)(nil)

// NewInProc starts workerCount goroutines draining a buffer of bufferSize
// requests. Each request is handled with a fresh context so in-flight
// deliveries survive the submitting request's cancellation.
func NewInProc(handler Handler, bufferSize, workerCount int, logger types.Logger) *InProc {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if workerCount <= 0 {
		workerCount = 4
	}

	q := &InProc{
		requests: make(chan types.NotificationRequest, bufferSize),
		handler:  handler,
		logger:   logger,
		group:    &errgroup.Group{},
	}

	for i := 0; i < workerCount; i++ {
		q.group.Go(q.work)
	}

	return q
}

func (q *InProc) work() error {
	for req := range q.requests {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		ctx = types.WithRequestID(ctx, req.TraceID)

		outcome := q.handler(ctx, req)
		cancel()

		q.logger.Info("notification processed",
			"request_id", req.ID,
			"trace_id", req.TraceID,
			"category", string(req.Category),
			"status", string(outcome.Status),
			"reason", outcome.Reason,
		)
	}
	return nil
}

// Submit enqueues the request without blocking. A full buffer or a closed
// channel yields ErrCodeInternalQueue.
func (q *InProc) Submit(ctx context.Context, req types.NotificationRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"notification queue is shut down",
			nil,
		)
	}

	select {
	case q.requests <- req:
		return nil
	default:
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"notification queue is full",
			nil,
		)
	}
}

// Close stops accepting new requests and waits for the workers to drain the
// buffer, up to the context deadline.
func (q *InProc) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.requests)
	}
	q.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- q.group.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"timed out waiting for notification queue to drain",
			ctx.Err(),
		)
	}
}
