package goEventHub

import (
	"context"
	"sync"
	"sync/atomic"
)

const errorKindCount = int(KindBusiness) + 1

// auditDispatcher moves action events off the calling goroutine. Events that
// never reach the sink are counted per ErrorKind, whether dropped on a full
// buffer or abandoned by a shutdown deadline.
type auditDispatcher struct {
	cfg     AuditConfig
	sink    AuditSink
	ch      chan ActionEvent
	done    chan struct{}
	abandon chan struct{}
	drained chan struct{}
	dropped [errorKindCount]atomic.Uint64

	sinkCtx    context.Context
	cancelSink context.CancelFunc

	closed      atomic.Bool
	closeOnce   sync.Once
	abandonOnce sync.Once
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

	d := &auditDispatcher{
		cfg:     cfg,
		sink:    sink,
		ch:      make(chan ActionEvent, cfg.BufferSize),
		done:    make(chan struct{}),
		abandon: make(chan struct{}),
		drained: make(chan struct{}),
	}
	d.sinkCtx, d.cancelSink = context.WithCancel(context.Background())
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.drained)

	for {
		select {
		case event := <-d.ch:
			d.handle(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain flushes the buffer after Close. Once abandoned, the rest is counted
// as dropped instead of delivered.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.handle(event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) handle(event ActionEvent) {
	select {
	case <-d.abandon:
		d.countDrop(event)
	default:
		d.sink.Emit(d.sinkCtx, event)
	}
}

func (d *auditDispatcher) countDrop(event ActionEvent) {
	k := int(event.Kind())
	if k < 0 || k >= errorKindCount {
		k = int(KindNone)
	}
	d.dropped[k].Add(1)
}

// Emit queues event for the sink. With DropIfFull a full buffer drops the
// event and counts it; otherwise Emit blocks until queued, ctx ends or the
// dispatcher closes.
func (d *auditDispatcher) Emit(ctx context.Context, event ActionEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.countDrop(event)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.countDrop(event)
	case <-d.done:
	}
}

// Close stops accepting events and drains the buffer into the sink until ctx
// ends. On deadline the sink call in flight is cancelled, the remaining events
// are counted as dropped and ctx.Err() is returned. Safe to call twice.
func (d *auditDispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})

	select {
	case <-d.drained:
		d.cancelSink()
		return nil
	case <-ctx.Done():
		d.abandonOnce.Do(func() {
			close(d.abandon)
			d.cancelSink()
		})
		<-d.drained
		return ctx.Err()
	}
}

// Dropped is the total of DroppedByKind.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	var total uint64
	for i := range d.dropped {
		total += d.dropped[i].Load()
	}
	return total
}

// DroppedByKind reports lost events per outcome; KindNone counts successes.
func (d *auditDispatcher) DroppedByKind() map[ErrorKind]uint64 {
	out := make(map[ErrorKind]uint64, errorKindCount)
	for i := 0; i < errorKindCount; i++ {
		if d == nil {
			out[ErrorKind(i)] = 0
			continue
		}
		out[ErrorKind(i)] = d.dropped[i].Load()
	}
	return out
}
