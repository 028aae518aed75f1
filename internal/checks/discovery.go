package checks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/auth0scan/internal/client"
	"github.com/example/auth0scan/internal/config"
	"github.com/example/auth0scan/internal/events"
)

// Dummy credentials used for enumeration probes. The goal is a
// wrong-credentials response, never a successful login.
const (
	probeConnection = "Username-Password-Authentication"
	probeUsername   = "test@test.com"
	probePassword   = "dummy_password_123"
	enumEmail       = "enumtest@test.com"
	enumPassword    = "TestPassword123!"
)

// ConnectionEnumeration discovers the tenant's authentication connections.
// It first detects whether the password grant is usable, then enumerates the
// candidate wordlist with whichever method the detection selected. The
// discovered names are returned alongside the result and drive phase 3.
func ConnectionEnumeration(ctx context.Context, gw *client.Client, cfg config.ScanConfig, sink events.Sink) (Result, []string, error) {
	const id, name = "2.1", "Connection Enumeration"
	_ = sink.Emit(events.Event{Type: events.TypeCheckStart, Message: "Check 2.1: Connection Enumeration"})

	wordlist, err := config.LoadConnectionWordlist(cfg)
	if err != nil {
		return errorResult(id, name, PhaseDiscovery, err), nil, nil
	}

	if cfg.ConnectionsKeyword != "" {
		_ = sink.Emit(events.Event{Type: events.TypeNote, Message: fmt.Sprintf("Generating combinations for: %q", cfg.ConnectionsKeyword)})
	}
	_ = sink.Emit(events.Event{Type: events.TypeNote, Message: fmt.Sprintf("Testing %d connection names...", len(wordlist))})

	passwordGrantEnabled, err := isPasswordGrantEnabled(ctx, gw, cfg)
	if err != nil {
		return Result{}, nil, err
	}

	var found []string
	var methodUsed string
	if passwordGrantEnabled {
		_ = sink.Emit(events.Event{Type: events.TypeNote, Message: "Password grant enabled - using fast method"})
		found, err = enumerateViaPasswordGrant(ctx, gw, cfg, wordlist, sink)
		methodUsed = "password_grant"
	} else {
		_ = sink.Emit(events.Event{Type: events.TypeNote, Message: "Password grant disabled - using signup method (database connections only)"})
		found, err = enumerateViaSignup(ctx, gw, cfg, wordlist, sink)
		methodUsed = "signup_enumeration"
	}
	if err != nil {
		return Result{}, nil, err
	}

	_ = sink.Emit(events.Event{Type: events.TypeCheckResult, Message: fmt.Sprintf("Found %d connection(s)", len(found))})

	details := map[string]interface{}{
		"found_connections":      found,
		"total_tested":           len(wordlist),
		"method_used":            methodUsed,
		"password_grant_enabled": passwordGrantEnabled,
	}
	if cfg.ConnectionsKeyword != "" {
		details["used_combinations_for"] = cfg.ConnectionsKeyword
	}

	return Result{
		CheckID:         id,
		CheckName:       name,
		Phase:           PhaseDiscovery,
		Severity:        SeverityMedium,
		Vulnerable:      len(found) > 0,
		Details:         details,
		RiskDescription: fmt.Sprintf("Discovered %d authentication connection(s)", len(found)),
	}, found, nil
}

// isPasswordGrantEnabled submits one password-grant request against a
// well-known connection name. Only an explicit "grant type ... not allowed"
// error proves the grant is disabled; any other outcome (including transport
// failure) is treated as enabled so enumeration can proceed.
func isPasswordGrantEnabled(ctx context.Context, gw *client.Client, cfg config.ScanConfig) (bool, error) {
	resp, err := gw.Post(ctx, "/oauth/token", map[string]string{
		"client_id":  cfg.ClientID,
		"connection": probeConnection,
		"grant_type": "password",
		"username":   probeUsername,
		"password":   probePassword,
	})
	if err != nil {
		if shouldAbort(err) {
			return false, err
		}
		return true, nil
	}

	body, ok := resp.JSON()
	if !ok {
		return true, nil
	}

	desc, _ := body["error_description"].(string)
	desc = strings.ToLower(desc)
	if strings.Contains(desc, "grant type") && strings.Contains(desc, "not allowed") {
		return false, nil
	}

	return true, nil
}

// enumerateViaPasswordGrant tests each candidate with a password-grant
// request. A connection exists when the platform validated the dummy
// credentials against it instead of rejecting the connection name.
func enumerateViaPasswordGrant(ctx context.Context, gw *client.Client, cfg config.ScanConfig, wordlist []string, sink events.Sink) ([]string, error) {
	var found []string

	for _, connection := range wordlist {
		resp, err := gw.Post(ctx, "/oauth/token", map[string]string{
			"client_id":  cfg.ClientID,
			"connection": connection,
			"grant_type": "password",
			"username":   probeUsername,
			"password":   probePassword,
		})
		if err != nil {
			if shouldAbort(err) {
				return nil, err
			}
			continue
		}

		body, ok := resp.JSON()
		if !ok {
			continue
		}

		errValue, _ := body["error"].(string)
		desc, _ := body["error_description"].(string)
		desc = strings.ToLower(desc)

		if strings.Contains(errValue, "invalid_grant") || strings.Contains(desc, "wrong") || strings.Contains(desc, "incorrect") {
			found = append(found, connection)
			_ = sink.Emit(events.Event{Type: events.TypeConnection, Message: "Found: " + connection})
		}
	}

	return found, nil
}

// enumerateViaSignup tests each candidate via the signup endpoint. Only an
// explicit 404 or a "connection ... not found" error proves absence; every
// other outcome means the connection exists in some state.
func enumerateViaSignup(ctx context.Context, gw *client.Client, cfg config.ScanConfig, wordlist []string, sink events.Sink) ([]string, error) {
	var found []string

	for _, connection := range wordlist {
		resp, err := gw.Post(ctx, "/dbconnections/signup", map[string]string{
			"client_id":  cfg.ClientID,
			"email":      enumEmail,
			"password":   enumPassword,
			"connection": connection,
		})
		if err != nil {
			if shouldAbort(err) {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			continue
		}

		if body, ok := resp.JSON(); ok {
			errValue, _ := body["error"].(string)
			errValue = strings.ToLower(errValue)
			if strings.Contains(errValue, "connection") && strings.Contains(errValue, "not found") {
				continue
			}
		}

		found = append(found, connection)
		_ = sink.Emit(events.Event{Type: events.TypeConnection, Message: "Found: " + connection})
	}

	return found, nil
}
