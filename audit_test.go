package goEventHub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goEventHub/backendtest"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, ActionEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(ctx context.Context, _ ActionEvent) {
	select {
	case <-s.gate:
	case <-ctx.Done():
	}
}

// stuckSink holds every event until its context is cancelled and reports
// each delivery attempt on entered.
type stuckSink struct {
	entered chan ActionEvent
}

func newStuckSink() *stuckSink {
	return &stuckSink{entered: make(chan ActionEvent, 16)}
}

func (s *stuckSink) Emit(ctx context.Context, event ActionEvent) {
	s.entered <- event
	<-ctx.Done()
}

func (s *stuckSink) waitEntered(t *testing.T) ActionEvent {
	t.Helper()
	select {
	case ev := <-s.entered:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected sink to receive an event")
	}
	return ActionEvent{}
}

func buildAuditTestStore(t *testing.T, srv *backendtest.Server, audit AuditConfig, sink AuditSink) *Store {
	t.Helper()
	return newTestStore(t, srv, func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Backend.BaseURL = srv.URL()
		cfg.Audit = audit
		b.WithConfig(cfg).WithAuditSink(sink)
	})
}

func nextEvent(t *testing.T, sink *ChannelSink) ActionEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected action event to be received")
	}
	return ActionEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	srv := newBackend(t)
	sink := &countingSink{}
	store := buildAuditTestStore(t, srv, AuditConfig{Enabled: false, BufferSize: 8}, sink)

	store.Login(context.Background(), "alice@example.com", "wrong-password")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEventFieldsOnFailure(t *testing.T) {
	srv := newBackend(t)
	srv.Reply(backendtest.RouteLogin, http.StatusUnauthorized, map[string]string{"msg": "Bad email or password"})
	sink := NewChannelSink(8)
	store := buildAuditTestStore(t, srv, AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	ctx := WithRequestID(context.Background(), "req-audit")
	store.Login(ctx, "alice@example.com", "super-secret-password")

	ev := nextEvent(t, sink)
	if ev.Action != actionLogin || ev.Success() || ev.Failure == nil {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Failure.Kind != KindBusiness || ev.Failure.Status != http.StatusUnauthorized {
		t.Fatalf("expected business/401, got %s/%d", ev.Failure.Kind, ev.Failure.Status)
	}
	if ev.RequestID != "req-audit" {
		t.Fatalf("expected request id req-audit, got %q", ev.RequestID)
	}
	if ev.Failure.Message != "Bad email or password" {
		t.Fatalf("unexpected message %q", ev.Failure.Message)
	}
	if strings.Contains(ev.Failure.Message, "super-secret-password") {
		t.Fatal("sensitive password leaked in error")
	}
	for _, v := range ev.Metadata {
		if strings.Contains(v, "super-secret-password") {
			t.Fatal("sensitive password leaked in metadata")
		}
	}
}

func TestAuditFeedEventCarriesMetadata(t *testing.T) {
	srv := newBackend(t)
	srv.SetEvents(backendtest.RouteEvents, []map[string]any{{"id": 1}, {"id": 2}})
	sink := NewChannelSink(8)
	store := buildAuditTestStore(t, srv, AuditConfig{Enabled: true, BufferSize: 16}, sink)

	if _, err := store.FetchFeed(context.Background(), FeedForYou); err != nil {
		t.Fatalf("FetchFeed: %v", err)
	}

	ev := nextEvent(t, sink)
	if !ev.Success() || ev.Kind() != KindNone || ev.Action != actionFeed {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["tab"] != string(FeedForYou) || ev.Metadata["count"] != "2" {
		t.Fatalf("unexpected metadata %+v", ev.Metadata)
	}
}

func TestAuditNoTokensInEvents(t *testing.T) {
	srv := newBackend(t)
	srv.Reply(backendtest.RouteResetPassword, http.StatusBadRequest, map[string]string{"msg": "weak password"})
	srv.Reply(backendtest.RouteValidToken, http.StatusUnauthorized, map[string]string{"msg": "expired"})
	sink := NewChannelSink(8)
	store := buildAuditTestStore(t, srv, AuditConfig{Enabled: true, BufferSize: 16}, sink)
	ctx := context.Background()

	const resetToken = "reset-token-value"
	const accessToken = "access-token-value"
	_ = store.SaveToken(ctx, accessToken)
	store.ResetPassword(ctx, "new-password-123", resetToken)
	_, _ = store.ValidateToken(ctx)

	for i := 0; i < 2; i++ {
		ev := nextEvent(t, sink)
		for _, needle := range []string{resetToken, accessToken, "new-password-123"} {
			if ev.Failure != nil && strings.Contains(ev.Failure.Message, needle) {
				t.Fatalf("sensitive value leaked in audit failure message: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		_ = dispatcher.Close(context.Background())
	}()

	dispatcher.Emit(context.Background(), ActionEvent{Action: "e1"})
	dispatcher.Emit(context.Background(), ActionEvent{Action: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), ActionEvent{Action: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		_ = dispatcher.Close(context.Background())
	}()

	dispatcher.Emit(context.Background(), ActionEvent{Action: "e1"})
	dispatcher.Emit(context.Background(), ActionEvent{Action: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), ActionEvent{Action: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), ActionEvent{
		Timestamp: time.Now().UTC(),
		Action:    actionValidateToken,
		RequestID: "r-1",
		Duration:  1500 * time.Microsecond,
	})

	if !buf.Contains(`"action":"validate_token"`) {
		t.Fatal("expected JSON log line to contain action")
	}
	if !buf.Contains(`"request_id":"r-1"`) {
		t.Fatal("expected JSON log line to contain request id")
	}
	if !buf.Contains(`"ok":true`) || !buf.Contains(`"duration_ms":1.5`) {
		t.Fatalf("expected ok and duration_ms, got %s", buf.String())
	}
	if buf.Contains(`"failure"`) {
		t.Fatalf("expected no failure object on success, got %s", buf.String())
	}
	if !buf.Contains("\n") {
		t.Fatal("expected newline-terminated record")
	}
}

func TestAuditJSONWriterSinkWritesFailureShape(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), ActionEvent{
		Action: actionLogin,
		Failure: &ActionFailure{
			Kind:    KindBusiness,
			Status:  http.StatusUnauthorized,
			Message: "Bad email or password",
		},
	})

	line := strings.TrimSpace(buf.String())
	var decoded struct {
		OK      bool `json:"ok"`
		Failure struct {
			Kind    string `json:"kind"`
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"failure"`
	}
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode line %q: %v", line, err)
	}
	if decoded.OK {
		t.Fatal("expected ok=false for a failure")
	}
	if decoded.Failure.Kind != "business" || decoded.Failure.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected failure %+v", decoded.Failure)
	}
	if decoded.Failure.Message != "Bad email or password" {
		t.Fatalf("unexpected message %q", decoded.Failure.Message)
	}
}

func TestAuditFailuresOnlyFiltersByKind(t *testing.T) {
	sink := NewChannelSink(8)
	filter := FailuresOnly(sink, KindAuth, KindTransport)
	ctx := context.Background()

	filter.Emit(ctx, ActionEvent{Action: "ok"})
	filter.Emit(ctx, ActionEvent{Action: "business", Failure: &ActionFailure{Kind: KindBusiness}})
	filter.Emit(ctx, ActionEvent{Action: "auth", Failure: &ActionFailure{Kind: KindAuth}})

	ev := nextEvent(t, sink)
	if ev.Action != "auth" {
		t.Fatalf("expected only the auth failure, got %+v", ev)
	}
	select {
	case extra := <-sink.Events():
		t.Fatalf("unexpected extra event %+v", extra)
	default:
	}

	all := FailuresOnly(sink)
	all.Emit(ctx, ActionEvent{Action: "ok"})
	all.Emit(ctx, ActionEvent{Action: "business", Failure: &ActionFailure{Kind: KindBusiness}})
	if ev := nextEvent(t, sink); ev.Action != "business" {
		t.Fatalf("expected business failure, got %+v", ev)
	}
}

func TestAuditDroppedCountedPerKind(t *testing.T) {
	sink := newStuckSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_ = dispatcher.Close(ctx)
	}()
	ctx := context.Background()

	dispatcher.Emit(ctx, ActionEvent{Action: "in-flight"})
	sink.waitEntered(t)
	dispatcher.Emit(ctx, ActionEvent{Action: "queued"})

	dispatcher.Emit(ctx, ActionEvent{Action: "b", Failure: &ActionFailure{Kind: KindBusiness}})
	dispatcher.Emit(ctx, ActionEvent{Action: "b", Failure: &ActionFailure{Kind: KindBusiness}})
	dispatcher.Emit(ctx, ActionEvent{Action: "t", Failure: &ActionFailure{Kind: KindTransport}})

	byKind := dispatcher.DroppedByKind()
	if byKind[KindBusiness] != 2 || byKind[KindTransport] != 1 || byKind[KindAuth] != 0 || byKind[KindNone] != 0 {
		t.Fatalf("unexpected drops %v", byKind)
	}
	if len(byKind) != errorKindCount {
		t.Fatalf("expected every kind reported, got %v", byKind)
	}
	var total uint64
	for _, n := range byKind {
		total += n
	}
	if dispatcher.Dropped() != total {
		t.Fatalf("expected Dropped %d to equal per-kind total %d", dispatcher.Dropped(), total)
	}
}

func TestAuditBlockingEmitCountsDropOnContextEnd(t *testing.T) {
	sink := newStuckSink()
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_ = dispatcher.Close(ctx)
	}()

	dispatcher.Emit(context.Background(), ActionEvent{Action: "e1"})
	sink.waitEntered(t)
	dispatcher.Emit(context.Background(), ActionEvent{Action: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	dispatcher.Emit(ctx, ActionEvent{Action: "e3", Failure: &ActionFailure{Kind: KindAuth}})

	if got := dispatcher.DroppedByKind()[KindAuth]; got != 1 {
		t.Fatalf("expected one auth drop, got %d", got)
	}
}

func TestAuditCloseDeadlineAbandonsQueuedEvents(t *testing.T) {
	sink := newStuckSink()
	dispatcher := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	bg := context.Background()

	dispatcher.Emit(bg, ActionEvent{Action: "in-flight"})
	sink.waitEntered(t)
	dispatcher.Emit(bg, ActionEvent{Action: "b", Failure: &ActionFailure{Kind: KindBusiness}})
	dispatcher.Emit(bg, ActionEvent{Action: "t", Failure: &ActionFailure{Kind: KindTransport}})

	ctx, cancel := context.WithTimeout(bg, 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := dispatcher.Close(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("expected Close to return soon after the deadline")
	}

	byKind := dispatcher.DroppedByKind()
	if byKind[KindBusiness] != 1 || byKind[KindTransport] != 1 || byKind[KindNone] != 0 {
		t.Fatalf("unexpected drops %v", byKind)
	}
	select {
	case ev := <-sink.entered:
		t.Fatalf("abandoned event reached the sink: %+v", ev)
	default:
	}

	if err := dispatcher.Close(bg); err != nil {
		t.Fatalf("expected second Close to succeed, got %v", err)
	}
}

func TestStoreShutdownDrainsWithinDeadline(t *testing.T) {
	srv := newBackend(t)
	srv.Reply(backendtest.RouteLogin, http.StatusUnauthorized, map[string]string{"msg": "Bad email or password"})
	sink := newStuckSink()
	store := buildAuditTestStore(t, srv, AuditConfig{Enabled: true, BufferSize: 8}, sink)
	bg := context.Background()

	store.Login(bg, "alice@example.com", "nope")
	if ev := sink.waitEntered(t); ev.Kind() != KindBusiness {
		t.Fatalf("expected business failure first, got %+v", ev)
	}
	store.Login(bg, "alice@example.com", "nope")

	ctx, cancel := context.WithTimeout(bg, 50*time.Millisecond)
	defer cancel()
	if err := store.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := store.AuditDroppedByKind()[KindBusiness]; got != 1 {
		t.Fatalf("expected one abandoned business event, got %d", got)
	}
	if store.AuditDropped() != 1 {
		t.Fatalf("expected total drops 1, got %d", store.AuditDropped())
	}
	if _, err := store.ValidateToken(bg); !errors.Is(err, ErrStoreNotReady) {
		t.Fatalf("expected ErrStoreNotReady after Shutdown, got %v", err)
	}
}

func TestStoreShutdownWithoutAudit(t *testing.T) {
	store := newTestStore(t, newBackend(t))
	if err := store.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	for kind, n := range store.AuditDroppedByKind() {
		if n != 0 {
			t.Fatalf("expected no drops for %s, got %d", kind, n)
		}
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), ActionEvent{Action: "e1"})
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dispatcher.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	dispatcher.Emit(context.Background(), ActionEvent{Action: "e2"})
	if dispatcher.Dropped() != 0 {
		t.Fatalf("expected emit after close to be ignored, got %d drops", dispatcher.Dropped())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
