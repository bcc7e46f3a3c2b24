package goEventHub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goEventHub/backendtest"
)

func recoveryRequests(srv *backendtest.Server) int {
	n := 0
	for _, r := range srv.Requests() {
		if r.Route == backendtest.RouteRecoverPassword {
			n++
		}
	}
	return n
}

func TestRecoveryThrottleStopsRequests(t *testing.T) {
	srv := newBackend(t)
	mr, rdb := newTestRedis(t)
	store := newTestStore(t, srv, func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Backend.BaseURL = srv.URL()
		cfg.Throttle = ThrottleConfig{Enabled: true, MaxRecoveryRequests: 2, RecoveryWindow: time.Minute}
		b.WithConfig(cfg).WithRedis(rdb)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !store.RequestPasswordRecovery(ctx, "ana@example.com") {
			t.Fatalf("request %d should pass the throttle", i)
		}
	}

	res := store.RequestPasswordRecoveryResult(ctx, "Ana@Example.com")
	if res.IsOk() {
		t.Fatal("expected third request to be throttled")
	}
	if res.Kind() != KindBusiness || !errors.Is(res.Failure(), ErrRecoveryThrottled) {
		t.Fatalf("expected business ErrRecoveryThrottled, got %v", res.Failure())
	}
	if got := recoveryRequests(srv); got != 2 {
		t.Fatalf("expected 2 backend requests, got %d", got)
	}
	if got := store.MetricsSnapshot().Counters[MetricRecoveryThrottled]; got != 1 {
		t.Fatalf("expected throttled counter 1, got %d", got)
	}

	if !store.RequestPasswordRecovery(ctx, "bo@example.com") {
		t.Fatal("another address keeps its own budget")
	}

	mr.FastForward(time.Minute + time.Second)
	if !store.RequestPasswordRecovery(ctx, "ana@example.com") {
		t.Fatal("expected a new window to allow the request")
	}
}

func TestRecoveryThrottleRedisOutageIsTransport(t *testing.T) {
	srv := newBackend(t)
	mr, rdb := newTestRedis(t)
	store := newTestStore(t, srv, func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Backend.BaseURL = srv.URL()
		cfg.Throttle.Enabled = true
		b.WithConfig(cfg).WithRedis(rdb)
	})
	mr.Close()

	res := store.RequestPasswordRecoveryResult(context.Background(), "ana@example.com")
	if res.IsOk() || res.Kind() != KindTransport {
		t.Fatalf("expected transport failure, got %v", res.Failure())
	}
	if got := recoveryRequests(srv); got != 0 {
		t.Fatalf("expected no backend request, got %d", got)
	}
}

func TestThrottleRequiresRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Throttle.Enabled = true
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to fail without redis")
	}

	cfg.Throttle.MaxRecoveryRequests = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject a zero budget")
	}
}
