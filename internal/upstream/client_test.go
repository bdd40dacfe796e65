package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(srv *httptest.Server, breaker *Breaker) *Client {
	return &Client{
		Target:      "catalog",
		HTTP:        srv.Client(),
		Breaker:     breaker,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestGetJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var dst struct {
		Name string `json:"name"`
	}
	if err := testClient(srv, nil).GetJSON(context.Background(), srv.URL, &dst); err != nil {
		t.Fatal(err)
	}
	if dst.Name != "ok" {
		t.Fatalf("name = %q", dst.Name)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var dst map[string]any
	if err := testClient(srv, nil).GetJSON(context.Background(), srv.URL, &dst); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := testClient(srv, nil).GetJSON(context.Background(), srv.URL, &map[string]any{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestGetJSONExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testClient(srv, nil).GetJSON(context.Background(), srv.URL, &map[string]any{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestBreakerOpensAndCoolsOff(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)

	if !b.allow(now) {
		t.Fatal("breaker should start closed")
	}
	b.report(false, now)
	if !b.allow(now) {
		t.Fatal("one failure should not open the breaker")
	}
	b.report(false, now)
	if b.allow(now) {
		t.Fatal("breaker should be open after threshold failures")
	}
	if b.allow(now.Add(30 * time.Second)) {
		t.Fatal("breaker should stay open during cool-off")
	}
	later := now.Add(61 * time.Second)
	if !b.allow(later) {
		t.Fatal("breaker should close after cool-off")
	}
	b.report(true, later)
	b.report(false, later)
	if !b.allow(later) {
		t.Fatal("success should have reset the failure count")
	}
}

func TestGetJSONRejectedWhileBreakerOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := NewBreaker(2, time.Hour)
	client := testClient(srv, breaker)

	// First call burns through the retry budget and trips the breaker.
	if err := client.GetJSON(context.Background(), srv.URL, &map[string]any{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	before := calls.Load()

	if err := client.GetJSON(context.Background(), srv.URL, &map[string]any{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if calls.Load() != before {
		t.Fatal("open breaker still let a request through")
	}
}

func TestGetJSONRespectsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := testClient(srv, nil)
	client.BaseBackoff = time.Second
	err := client.GetJSON(ctx, srv.URL, &map[string]any{})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
