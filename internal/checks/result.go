package checks

import (
	"context"
	"errors"

	"github.com/example/auth0scan/internal/client"
)

// Severity levels, ordered INFO < LOW < MEDIUM < HIGH < CRITICAL.
const (
	SeverityInfo     = "INFO"
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Phase labels attached to check results.
const (
	PhaseRecon     = "Phase 1: Reconnaissance"
	PhaseDiscovery = "Phase 2: Connection Discovery"
	PhaseTesting   = "Phase 3: Per-Connection Testing"
)

// Result is the outcome of a single check invocation. It is created once by
// the check and never mutated afterwards.
type Result struct {
	CheckID         string                 `json:"check_id"`
	CheckName       string                 `json:"check_name"`
	Phase           string                 `json:"phase"`
	Severity        string                 `json:"severity"`
	Vulnerable      bool                   `json:"vulnerable"`
	Details         map[string]interface{} `json:"details"`
	RiskDescription string                 `json:"risk_description,omitempty"`
}

// shouldAbort reports whether an error must unwind the whole scan rather
// than be converted into an INFO result: the two fatal gateway conditions
// plus context cancellation.
func shouldAbort(err error) bool {
	return client.IsFatal(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// errorResult converts a local check failure into a non-vulnerable INFO
// result carrying the error text, so one failing check never stops the scan.
func errorResult(id, name, phase string, err error) Result {
	return Result{
		CheckID:    id,
		CheckName:  name,
		Phase:      phase,
		Severity:   SeverityInfo,
		Vulnerable: false,
		Details:    map[string]interface{}{"error": err.Error()},
	}
}
