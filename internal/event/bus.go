// Package event provides the in-process signal bus that decouples the
// write path from mirror-store synchronization. Each signal kind has its
// own buffered queue drained by a single consumer goroutine, so signals of
// one kind are handled in order while kinds progress independently.
package event

import (
	"context"
	"log/slog"
	"sync"
)

// Kind identifies a signal category.
type Kind string

const (
	KindEngagementCreated Kind = "engagement.created"
	KindEngagementUpdated Kind = "engagement.updated"
	KindEngagementDeleted Kind = "engagement.deleted"
	KindStateChanged      Kind = "engagement.state-changed"
	KindCategoriesMerged  Kind = "categories.merged"
	KindCategoriesRefresh Kind = "categories.refresh"
	KindWebhooksRefresh   Kind = "webhooks.refresh"
)

// Signal is a unit of work delivered to a consumer. Payload carries the
// kind-specific data; consumers type-assert it.
type Signal struct {
	Kind    Kind
	Payload any
}

// Handler consumes one signal. Errors are logged by the bus; delivery is
// at-least-once from the caller's perspective, so handlers must tolerate
// replays.
type Handler func(ctx context.Context, sig Signal) error

const defaultQueueSize = 256

// Bus routes signals to per-kind consumer goroutines.
type Bus struct {
	log *slog.Logger

	mu     sync.Mutex
	queues map[Kind]chan Signal
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:    log,
		queues: make(map[Kind]chan Signal),
		done:   make(chan struct{}),
	}
}

// Subscribe registers the single handler for a kind and starts its consumer
// goroutine. A kind may only be subscribed once.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if _, ok := b.queues[kind]; ok {
		panic("event: duplicate subscription for kind " + string(kind))
	}

	ch := make(chan Signal, defaultQueueSize)
	b.queues[kind] = ch

	b.wg.Add(1)
	go b.consume(kind, ch, h)
}

func (b *Bus) consume(kind Kind, ch chan Signal, h Handler) {
	defer b.wg.Done()

	ctx := context.Background()
	for {
		select {
		case sig := <-ch:
			if err := h(ctx, sig); err != nil {
				b.log.Error("signal handler failed",
					slog.String("kind", string(kind)),
					slog.String("error", err.Error()),
				)
			}
		case <-b.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case sig := <-ch:
					if err := h(ctx, sig); err != nil {
						b.log.Error("signal handler failed during drain",
							slog.String("kind", string(kind)),
							slog.String("error", err.Error()),
						)
					}
				default:
					return
				}
			}
		}
	}
}

// Publish enqueues a signal without blocking the caller. When the kind has
// no subscriber or its queue is full the signal is dropped with a log line;
// the periodic reconciliation sweep repairs anything lost this way.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.Lock()
	ch, ok := b.queues[kind]
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return
	}
	if !ok {
		b.log.Warn("signal dropped, no subscriber", slog.String("kind", string(kind)))
		return
	}

	select {
	case ch <- Signal{Kind: kind, Payload: payload}:
	default:
		b.log.Warn("signal dropped, queue full", slog.String("kind", string(kind)))
	}
}

// Close stops accepting signals, lets consumers drain their queues, and
// waits for them to exit.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.wg.Wait()
}
