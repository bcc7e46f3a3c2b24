package goEventHub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
	"github.com/MrEthical07/goEventHub/internal/rate"
)

// Store is the single owner of SessionState. It is safe for concurrent use;
// every action is an independent unit of work that issues at most one backend
// request. Build one with New().WithConfig(cfg).Build().
type Store struct {
	config  Config
	client  *backend.Client
	tokens  TokenStore
	limiter *rate.Limiter
	logger  *slog.Logger
	audit   *auditDispatcher
	metrics *Metrics
	now     func() time.Time

	mu    sync.RWMutex
	state SessionState

	subsMu  sync.RWMutex
	subs    []subscription
	nextSub uint64

	closed atomic.Bool
}

// Change is delivered to subscribers after a dispatch.
type Change struct {
	Fields    Field
	Mutations []Mutation
	State     SessionState
}

// Listener receives state changes. Listeners run on a dispatching goroutine
// and may call back into the Store.
//
// A subscriber never sees State.Version go backwards. While its listener is
// running, changes from other dispatches queue up and are delivered by the
// goroutine already delivering, merged into one Change: Fields and Mutations
// are joined in Version order and State is the newest snapshot. A change
// older than one already delivered is dropped; its writes are contained in
// the newer State.
type Listener func(Change)

type subscription struct {
	id     uint64
	filter Field
	fn     Listener
	box    *mailbox
}

// mailbox serializes delivery to one listener without holding a lock across
// the call.
type mailbox struct {
	mu      sync.Mutex
	pending *Change
	running bool
	last    uint64
}

func (m *mailbox) post(c Change, fn Listener) {
	m.mu.Lock()
	if c.State.Version <= m.last {
		m.mu.Unlock()
		return
	}
	if m.pending == nil {
		m.pending = &c
	} else {
		m.pending.merge(c)
	}
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
		}
	}()
	for {
		next := m.take()
		if next == nil {
			finished = true
			return
		}
		fn(*next)
	}
}

func (m *mailbox) take() *Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.pending
	if next == nil {
		m.running = false
		return nil
	}
	m.pending = nil
	m.last = next.State.Version
	return next
}

func (c *Change) merge(other Change) {
	c.Fields |= other.Fields
	if other.State.Version > c.State.Version {
		c.Mutations = append(c.Mutations[:len(c.Mutations):len(c.Mutations)], other.Mutations...)
		c.State = other.State
		return
	}
	c.Mutations = append(other.Mutations[:len(other.Mutations):len(other.Mutations)], c.Mutations...)
}

// Close is Shutdown without a deadline.
func (s *Store) Close() {
	_ = s.Shutdown(context.Background())
}

// Shutdown marks the Store closed and drains queued action events into the
// audit sink until ctx ends. Events still queued at the deadline are counted
// in AuditDroppedByKind and ctx.Err() is returned. Actions on a closed Store
// fail with ErrStoreNotReady.
func (s *Store) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.closed.Store(true)
	if s.audit == nil {
		return nil
	}
	return s.audit.Close(ctx)
}

// State returns a deep copy of the current SessionState.
func (s *Store) State() SessionState {
	if s == nil {
		return SessionState{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Config returns a copy of the configuration the Store was built with.
func (s *Store) Config() Config {
	if s == nil {
		return Config{}
	}
	return cloneConfig(s.config)
}

// Subscribe registers fn for changes touching any of fields (all changes when
// fields is empty). The returned func removes the subscription.
func (s *Store) Subscribe(fn Listener, fields ...Field) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	var filter Field
	for _, f := range fields {
		filter |= f
	}

	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, filter: filter, fn: fn, box: &mailbox{}})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// AuditDropped returns the number of action events that never reached the
// audit sink.
func (s *Store) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// AuditDroppedByKind splits AuditDropped by outcome. Every kind is present;
// KindNone holds dropped successes. Without auditing all counts are zero.
func (s *Store) AuditDroppedByKind() map[ErrorKind]uint64 {
	if s == nil {
		return (*auditDispatcher)(nil).DroppedByKind()
	}
	return s.audit.DroppedByKind()
}

// MetricsSnapshot copies the action counters and latency histograms.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

func (s *Store) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

// dispatch applies muts atomically and notifies subscribers with the
// resulting snapshot. Version grows by one per mutation. Notification happens
// after the unlock, so concurrent dispatches race to the mailboxes.
func (s *Store) dispatch(muts ...Mutation) SessionState {
	if len(muts) == 0 {
		return s.State()
	}

	var fields Field
	s.mu.Lock()
	for _, m := range muts {
		m.Apply(&s.state)
		s.state.Version++
		fields |= m.Writes()
	}
	snap := s.state.clone()
	s.mu.Unlock()

	for range muts {
		s.metricInc(MetricStateMutation)
	}

	s.subsMu.RLock()
	subs := append([]subscription(nil), s.subs...)
	s.subsMu.RUnlock()

	change := Change{Fields: fields, Mutations: muts, State: snap}
	for _, sub := range subs {
		if sub.filter != 0 && sub.filter&fields == 0 {
			continue
		}
		sub.box.post(change, sub.fn)
	}
	return snap
}

func (s *Store) ready() *ActionError {
	if s == nil || s.client == nil || s.closed.Load() {
		return &ActionError{Kind: KindTransport, Err: ErrStoreNotReady}
	}
	return nil
}

// call performs one backend request. A non-nil *ActionError is always a
// transport failure; status interpretation is left to the action.
func (s *Store) call(ctx context.Context, action string, req backend.Request) (backend.Response, *ActionError) {
	if aerr := s.ready(); aerr != nil {
		aerr.Action = action
		return backend.Response{}, aerr
	}
	if req.RequestID == "" {
		req.RequestID = requestIDFromContext(ctx)
	}

	start := time.Now()
	resp, err := s.client.Do(ctx, req)
	if s.metrics != nil {
		s.metrics.Observe(MetricBackendLatency, time.Since(start))
	}
	if err != nil {
		s.metricInc(MetricTransportFailure)
		return resp, &ActionError{
			Action:    action,
			Kind:      KindTransport,
			RequestID: resp.RequestID,
			Err:       err,
		}
	}
	return resp, nil
}

// decodeFailure turns a 200 answer with an undecodable body into a transport
// failure; the request completed but its payload is unusable.
func decodeFailure(action string, resp backend.Response, err error) *ActionError {
	return &ActionError{
		Action:    action,
		Kind:      KindTransport,
		Status:    resp.Status,
		RequestID: resp.RequestID,
		Err:       err,
	}
}

func statusFailure(action string, kind ErrorKind, resp backend.Response) *ActionError {
	return &ActionError{
		Action:    action,
		Kind:      kind,
		Status:    resp.Status,
		Message:   serverMessage(resp.Body),
		RequestID: resp.RequestID,
	}
}

// serverMessage extracts the human readable error the backend sends as "msg"
// or "message".
func serverMessage(body []byte) string {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Msg != "":
		return payload.Msg
	case payload.Message != "":
		return payload.Message
	default:
		return payload.Error
	}
}

// record closes out an action: metrics, log line and action event.
func (s *Store) record(
	ctx context.Context,
	action string,
	start time.Time,
	requestID string,
	aerr *ActionError,
	success, failure MetricID,
	metadata func() map[string]string,
) {
	if s == nil {
		return
	}
	if aerr == nil {
		s.metricInc(success)
	} else {
		s.metricInc(failure)
	}

	if aerr != nil && s.logger != nil {
		level := slog.LevelWarn
		if aerr.Kind == KindBusiness {
			level = slog.LevelInfo
		}
		attrs := []slog.Attr{
			slog.String("action", action),
			slog.String("kind", aerr.Kind.String()),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if aerr.Status != 0 {
			attrs = append(attrs, slog.Int("status", aerr.Status))
		}
		if aerr.Err != nil {
			attrs = append(attrs, slog.String("err", aerr.Err.Error()))
		} else if aerr.Message != "" {
			attrs = append(attrs, slog.String("msg", aerr.Message))
		}
		s.logger.LogAttrs(ctx, level, "action failed", attrs...)
	}

	if s.audit == nil {
		return
	}
	event := ActionEvent{
		Timestamp: s.now(),
		Action:    action,
		RequestID: requestID,
		Duration:  time.Since(start),
	}
	if aerr != nil {
		failure := &ActionFailure{Kind: aerr.Kind, Status: aerr.Status}
		if aerr.Kind == KindTransport && aerr.Err != nil {
			failure.Message = aerr.Err.Error()
		} else {
			failure.Message = aerr.Message
		}
		if failure.Message == "" && aerr.Status != 0 {
			failure.Message = http.StatusText(aerr.Status)
		}
		event.Failure = failure
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	s.audit.Emit(ctx, event)
}
