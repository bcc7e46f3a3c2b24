package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goEventHub/backendtest"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newFake(t *testing.T) *backendtest.Server {
	t.Helper()
	fake := backendtest.New()
	t.Cleanup(fake.Close)
	fake.AddUser("ada@example.com", "lovelace")
	return fake
}

func TestLoginCommand(t *testing.T) {
	fake := newFake(t)

	out, err := runCLI(t, "--backend", fake.URL(), "login", "ada@example.com", "lovelace")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("expected true, got %q", out)
	}

	out, err = runCLI(t, "--backend", fake.URL(), "login", "ada@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error for bad password")
	}
	if strings.TrimSpace(out) != "false" {
		t.Fatalf("expected false, got %q", out)
	}
}

func TestValidateTokenCommand(t *testing.T) {
	fake := newFake(t)
	token, err := fake.IssueToken("ada@example.com")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	out, err := runCLI(t, "--backend", fake.URL(), "--token", token, "validate-token")
	if err != nil {
		t.Fatalf("validate-token failed: %v", err)
	}
	if strings.TrimSpace(out) != "is_logged=true" {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := runCLI(t, "--backend", fake.URL(), "validate-token"); err == nil {
		t.Fatal("expected error without a token")
	}
}

func TestResetPasswordCommand(t *testing.T) {
	fake := newFake(t)
	token, err := fake.IssueToken("ada@example.com")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	out, err := runCLI(t, "--backend", fake.URL(), "reset-password", "n3w-secret", token)
	if err != nil {
		t.Fatalf("reset-password failed: %v", err)
	}
	if strings.TrimSpace(out) != "Password successfully changed" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = runCLI(t, "--backend", fake.URL(), "reset-password", "n3w-secret", "not-a-token")
	if err == nil {
		t.Fatal("expected error for bad reset token")
	}
	if strings.TrimSpace(out) != "Something went wrong, try again" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHelloAndRecoverCommands(t *testing.T) {
	fake := newFake(t)
	fake.SetGreeting("hi from the test")

	out, err := runCLI(t, "--backend", fake.URL(), "hello")
	if err != nil {
		t.Fatalf("hello failed: %v", err)
	}
	if strings.TrimSpace(out) != "hi from the test" {
		t.Fatalf("unexpected greeting %q", out)
	}

	out, err = runCLI(t, "--backend", fake.URL(), "recover-password", "ada@example.com")
	if err != nil {
		t.Fatalf("recover-password failed: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("unexpected output %q", out)
	}
	req, ok := fake.LastRequest(backendtest.RouteRecoverPassword)
	if !ok {
		t.Fatal("expected recover-password request")
	}
	var body map[string]string
	if err := req.JSON(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["email"] != "ada@example.com" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestFeedCommand(t *testing.T) {
	fake := newFake(t)
	fake.SetEvents(backendtest.RouteEvents, []map[string]any{
		{"id": 7, "name": "Picnic", "date": "2026-05-01 12:00:00 GMT+0000"},
	})

	out, err := runCLI(t, "--backend", fake.URL(), "feed", "for-you")
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if !strings.Contains(out, `"Picnic"`) {
		t.Fatalf("expected event in output, got %q", out)
	}

	if _, err := runCLI(t, "--backend", fake.URL(), "feed", "nope"); err == nil {
		t.Fatal("expected error for unknown tab")
	}
}

func TestTokenInspectCommand(t *testing.T) {
	fake := newFake(t)
	token, err := fake.IssueToken("ada@example.com")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	out, err := runCLI(t, "token", "inspect", token)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "subject:    ada@example.com") {
		t.Fatalf("missing subject in %q", out)
	}
	if !strings.Contains(out, "expired:    false") {
		t.Fatalf("expected unexpired token in %q", out)
	}

	out, err = runCLI(t, "--token", token, "token", "inspect")
	if err != nil {
		t.Fatalf("inspect from slot failed: %v", err)
	}
	if !strings.Contains(out, "ada@example.com") {
		t.Fatalf("missing subject in %q", out)
	}

	if _, err := runCLI(t, "token", "set", "abc"); err == nil {
		t.Fatal("expected token set to need --redis-addr")
	}
}

func TestBenchCommand(t *testing.T) {
	out, err := runCLI(t, "bench", "--ops", "20", "--concurrency", "4")
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	for _, phase := range []string{"login:", "validate-token:", "hello:", "feed:"} {
		if !strings.Contains(out, phase) {
			t.Fatalf("missing %s in %q", phase, out)
		}
	}
	if !strings.Contains(out, "failures=0") {
		t.Fatalf("expected no failures, got %q", out)
	}
}

func TestParseStubUsers(t *testing.T) {
	users, err := parseStubUsers([]string{"a@b.c:pw:with:colons"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if users[0].email != "a@b.c" || users[0].password != "pw:with:colons" {
		t.Fatalf("unexpected user %+v", users[0])
	}
	if _, err := parseStubUsers([]string{"nopassword"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestComputeStats(t *testing.T) {
	samples := []time.Duration{5, 1, 4, 2, 3}
	s := computeStats(time.Second, samples, 1)
	if s.ops != 5 || s.failures != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.p50 != 3 || s.p99 != 4 {
		t.Fatalf("unexpected percentiles p50=%d p99=%d", s.p50, s.p99)
	}
	if percentile(nil, 50) != 0 {
		t.Fatal("expected zero percentile for empty samples")
	}
}
