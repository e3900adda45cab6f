// Package queue provides the asynchronous delivery channel between the
// notification dispatcher and the delivery worker. Two implementations
// exist: an in-process bounded queue with a worker pool, and an SQS-backed
// channel for deployments where delivery runs in a separate process.
package queue

import (
	"context"

	"mergington/internal/types"
)

// Handler processes a single notification request and reports its outcome.
type Handler func(ctx context.Context, req types.NotificationRequest) types.Outcome

// Channel accepts notification requests for asynchronous delivery. Submit
// must return quickly; it never blocks on downstream delivery.
type Channel interface {
	Submit(ctx context.Context, req types.NotificationRequest) error
	Close(ctx context.Context) error
}
