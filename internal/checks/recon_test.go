package checks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/auth0scan/internal/client"
	"github.com/example/auth0scan/internal/config"
	"github.com/example/auth0scan/internal/events"
)

func newTestGateway(t *testing.T, handler http.Handler) *client.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	gw, err := client.New(client.Options{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func testConfig() config.ScanConfig {
	cfg := config.DefaultScanConfig()
	cfg.Domain = "victim.auth0.com"
	cfg.ClientID = "abc123"
	cfg.TargetAppURL = "https://app.victim.com"
	return cfg
}

func TestOpenIDConfigurationFlagsPasswordGrant(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"issuer": "https://victim.auth0.com/",
			"grant_types_supported": ["authorization_code", "password"],
			"id_token_signing_alg_values_supported": ["RS256"],
			"token_endpoint": "https://victim.auth0.com/oauth/token"
		}`))
	}))

	res, err := OpenIDConfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !res.Vulnerable {
		t.Fatal("expected vulnerable result")
	}

	if res.Details["password_grant_enabled"] != true {
		t.Fatalf("expected password_grant_enabled=true, got %#v", res.Details)
	}
}

func TestOpenIDConfigurationFlagsNoneAlgorithm(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"grant_types_supported": ["authorization_code"], "id_token_signing_alg_values_supported": ["RS256", "none"]}`))
	}))

	res, err := OpenIDConfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !res.Vulnerable {
		t.Fatal("expected vulnerable result for none algorithm")
	}
}

func TestOpenIDConfigurationNon200IsInfo(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	res, err := OpenIDConfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if res.Vulnerable || res.Severity != SeverityInfo {
		t.Fatalf("expected non-vulnerable INFO result, got %#v", res)
	}

	if res.Details["error"] != "HTTP 404" {
		t.Fatalf("expected HTTP 404 detail, got %#v", res.Details)
	}
}

func TestCORSWildcardOriginIsHigh(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			t.Errorf("expected OPTIONS, got %s", r.Method)
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
	}))

	res, err := CORSMisconfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !res.Vulnerable || res.Severity != SeverityHigh {
		t.Fatalf("expected vulnerable HIGH result, got %#v", res)
	}

	if res.Details["allows_wildcard_origin"] != true {
		t.Fatalf("expected wildcard detail, got %#v", res.Details)
	}
}

func TestCORSReflectedOriginWithCredentials(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.WriteHeader(http.StatusOK)
	}))

	res, err := CORSMisconfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !res.Vulnerable {
		t.Fatal("expected vulnerable result")
	}

	if res.Details["reflects_attacker_origin"] != true || res.Details["allows_credentials"] != true {
		t.Fatalf("unexpected details: %#v", res.Details)
	}
}

func TestCORSStrictConfigIsInfo(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res, err := CORSMisconfiguration(context.Background(), gw, events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if res.Vulnerable || res.Severity != SeverityInfo {
		t.Fatalf("expected non-vulnerable INFO, got %#v", res)
	}
}

func TestOpenRedirectFlagsRedirectToAttacker(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirect_uri")
		if redirectURI == "https://attacker.com" {
			w.Header().Set("Location", "https://attacker.com/cb")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
	}))

	res, err := OpenRedirect(context.Background(), gw, testConfig(), events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if !res.Vulnerable || res.Severity != SeverityHigh {
		t.Fatalf("expected vulnerable HIGH result, got %#v", res)
	}

	bypasses, ok := res.Details["vulnerable_bypasses"].([]string)
	if !ok || len(bypasses) != 1 || bypasses[0] != "https://attacker.com" {
		t.Fatalf("unexpected bypasses: %#v", res.Details["vulnerable_bypasses"])
	}
}

func TestOpenRedirectUnclear200IsNotScored(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"login_page": true}`))
	}))

	res, err := OpenRedirect(context.Background(), gw, testConfig(), events.Nop{})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if res.Vulnerable {
		t.Fatal("ambiguous 200 responses must not be scored vulnerable")
	}

	if res.Details["total_tested"] != 7 {
		t.Fatalf("expected 7 payloads tested, got %#v", res.Details["total_tested"])
	}
}

func TestCheckPropagatesRateLimit(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := OpenRedirect(context.Background(), gw, testConfig(), events.Nop{})
	if !errors.Is(err, client.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited to propagate, got %v", err)
	}
}
