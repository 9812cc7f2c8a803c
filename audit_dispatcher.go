package authgate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands audit events to the sink on a single worker so that
// login and gate latency never include sink I/O.
type auditDispatcher struct {
	cfg  AuditConfig
	sink AuditSink
	ch   chan AuditEvent

	// stopping is closed when shutdown begins; finished when the worker exits.
	stopping chan struct{}
	finished chan struct{}

	// sinkCtx is cancelled when a shutdown deadline passes, which also turns
	// the remaining drain into counted drops.
	sinkCtx    context.Context
	cancelSink context.CancelFunc

	dropped  atomic.Uint64
	closed   atomic.Bool
	stopOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	sinkCtx, cancel := context.WithCancel(context.Background())
	d := &auditDispatcher{
		cfg:        cfg,
		sink:       sink,
		ch:         make(chan AuditEvent, cfg.BufferSize),
		stopping:   make(chan struct{}),
		finished:   make(chan struct{}),
		sinkCtx:    sinkCtx,
		cancelSink: cancel,
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.finished)

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.stopping:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	if d.sinkCtx.Err() != nil {
		d.dropped.Add(1)
		return
	}
	d.sink.Emit(d.sinkCtx, event)
}

// Emit queues event. With DropIfFull a full buffer drops the event and
// counts it; otherwise Emit blocks until there is room or ctx ends.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.stopping:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.stopping:
	}
}

// Shutdown stops accepting events and drains the buffer into the sink until
// ctx ends. Events still queued at that point are counted as dropped and the
// sink's context is cancelled.
func (d *auditDispatcher) Shutdown(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.stopping)
	})

	select {
	case <-d.finished:
		d.cancelSink()
		return nil
	case <-ctx.Done():
		before := d.dropped.Load()
		d.cancelSink()
		<-d.finished
		return fmt.Errorf("audit drain interrupted: %w (%d events dropped)", ctx.Err(), d.dropped.Load()-before)
	}
}

// Close drains without a deadline.
func (d *auditDispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
