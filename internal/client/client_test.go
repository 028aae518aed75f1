package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(Options{BaseURL: ts.URL, UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, ts
}

func TestGetTracksRequests(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("missing user agent, got %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"issuer":"https://victim.auth0.com/"}`))
	}))

	resp, err := c.Get(context.Background(), "/.well-known/openid-configuration", nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	body, ok := resp.JSON()
	if !ok || body["issuer"] != "https://victim.auth0.com/" {
		t.Fatalf("unexpected body: %#v", body)
	}

	if got := c.Stats().TotalRequests; got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestStatus429RaisesRateLimited(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.Post(context.Background(), "/oauth/token", map[string]string{"grant_type": "password"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if got := c.Stats().RateLimitedCount; got != 1 {
		t.Fatalf("expected rate limited count 1, got %d", got)
	}
}

func TestBlockedBodyRaisesAccountBlocked(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"blocked_user","error_description":"user is blocked"}`))
	}))

	_, err := c.Post(context.Background(), "/oauth/token", nil)
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestTooManyAttemptsRaisesRateLimited(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"Too many attempts, try later"}`))
	}))

	_, err := c.Post(context.Background(), "/oauth/token", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestOptionsSkipsLockoutInspection(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	resp, err := c.Options(context.Background(), "/oauth/token", map[string]string{"Origin": "https://attacker.com"})
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header: %#v", resp.Header)
	}
}

func TestRedirectsAreNotFollowed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://attacker.com/cb", http.StatusFound)
	}))

	resp, err := c.Get(context.Background(), "/authorize", url.Values{"client_id": {"abc"}})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}

	if got := resp.Header.Get("Location"); got != "https://attacker.com/cb" {
		t.Fatalf("unexpected location: %q", got)
	}
}

func TestPacingWaitsBetweenRequests(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c.delay = 50 * time.Millisecond

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "/", nil); err != nil {
			t.Fatalf("get failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("pacing too fast: %v", elapsed)
	}
}

func TestPacingHonorsContextCancellation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c.delay = time.Minute

	if _, err := c.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "/", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPatchSendsJSONBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type, got %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"updated":true}`))
	}))

	resp, err := c.Patch(context.Background(), "/api/v2/users/abc", map[string]string{"blocked": "false"})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	body, ok := resp.JSON()
	if !ok || body["updated"] != true {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestMeasureTimingReturnsElapsed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	_, elapsed, err := c.MeasureTiming(context.Background(), http.MethodPost, "/oauth/token", map[string]string{})
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}

	if elapsed < 5 {
		t.Fatalf("elapsed suspiciously low: %v ms", elapsed)
	}
}
