package report

import (
	"strings"
	"time"

	"github.com/example/auth0scan/internal/checks"
)

// maxRecommendations caps the recommendation list at the first findings in
// discovery order.
const maxRecommendations = 10

// Metadata describes one scan run.
type Metadata struct {
	TargetDomain        string    `json:"target_domain"`
	ClientID            string    `json:"client_id"`
	TargetAppURL        string    `json:"target_app_url"`
	ScanStart           time.Time `json:"scan_start"`
	ScanEnd             time.Time `json:"scan_end"`
	ScanDurationSeconds float64   `json:"scan_duration_seconds"`
	TotalRequests       int       `json:"total_requests"`
	RateLimitedCount    int       `json:"rate_limited_count"`
	ErrorCount          int       `json:"error_count"`
}

// PhaseSection groups the check results belonging to one phase.
type PhaseSection struct {
	Checks []checks.Result `json:"checks"`
}

// ConnectionsSection is the phase 2 section including the discovered names.
type ConnectionsSection struct {
	DiscoveredConnections []string        `json:"discovered_connections"`
	TotalFound            int             `json:"total_found"`
	Checks                []checks.Result `json:"checks"`
}

// RiskSummary aggregates vulnerable findings across all checks.
type RiskSummary struct {
	OverallRisk      string   `json:"overall_risk"`
	CriticalFindings int      `json:"critical_findings"`
	HighFindings     int      `json:"high_findings"`
	MediumFindings   int      `json:"medium_findings"`
	LowFindings      int      `json:"low_findings"`
	TotalChecks      int      `json:"total_checks"`
	VulnerableChecks int      `json:"vulnerable_checks"`
	Recommendations  []string `json:"recommendations"`
}

// Report is the complete scan output, built once at the end of the run.
type Report struct {
	ScanMetadata         Metadata           `json:"scan_metadata"`
	Phase1Reconnaissance PhaseSection       `json:"phase1_reconnaissance"`
	Phase2Connections    ConnectionsSection `json:"phase2_connections"`
	Phase3PerConnection  PhaseSection       `json:"phase3_per_connection"`
	RiskSummary          RiskSummary        `json:"risk_summary"`
	AllChecks            []checks.Result    `json:"all_checks"`
}

// Build assembles the report from the full result list.
func Build(meta Metadata, results []checks.Result, discovered []string) Report {
	rep := Report{
		ScanMetadata: meta,
		Phase2Connections: ConnectionsSection{
			DiscoveredConnections: discovered,
			TotalFound:            len(discovered),
		},
		RiskSummary: buildRiskSummary(results),
		AllChecks:   results,
	}

	for _, res := range results {
		switch {
		case strings.HasPrefix(res.Phase, "Phase 1"):
			rep.Phase1Reconnaissance.Checks = append(rep.Phase1Reconnaissance.Checks, res)
		case strings.HasPrefix(res.Phase, "Phase 2"):
			rep.Phase2Connections.Checks = append(rep.Phase2Connections.Checks, res)
		case strings.HasPrefix(res.Phase, "Phase 3"):
			rep.Phase3PerConnection.Checks = append(rep.Phase3PerConnection.Checks, res)
		}
	}

	return rep
}

func buildRiskSummary(results []checks.Result) RiskSummary {
	summary := RiskSummary{TotalChecks: len(results)}

	for _, res := range results {
		if !res.Vulnerable {
			continue
		}
		summary.VulnerableChecks++

		switch res.Severity {
		case checks.SeverityCritical:
			summary.CriticalFindings++
		case checks.SeverityHigh:
			summary.HighFindings++
		case checks.SeverityMedium:
			summary.MediumFindings++
		case checks.SeverityLow:
			summary.LowFindings++
		}

		if res.RiskDescription != "" && len(summary.Recommendations) < maxRecommendations {
			summary.Recommendations = append(summary.Recommendations, res.Severity+": "+res.RiskDescription)
		}
	}

	switch {
	case summary.CriticalFindings > 0:
		summary.OverallRisk = checks.SeverityCritical
	case summary.HighFindings > 0:
		summary.OverallRisk = checks.SeverityHigh
	case summary.MediumFindings > 0:
		summary.OverallRisk = checks.SeverityMedium
	case summary.LowFindings > 0:
		summary.OverallRisk = checks.SeverityLow
	default:
		summary.OverallRisk = checks.SeverityInfo
	}

	return summary
}
