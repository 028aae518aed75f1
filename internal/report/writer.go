package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// WriteFiles serializes the report into the output directory in both
// formats and returns the written paths.
func WriteFiles(rep Report, outputDir string) (jsonPath, textPath string, err error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", err
	}

	domain := strings.ReplaceAll(rep.ScanMetadata.TargetDomain, ".", "_")
	if domain == "" {
		domain = "unknown"
	}
	timestamp := time.Now().Format(timestampLayout)

	jsonPath = filepath.Join(outputDir, fmt.Sprintf("auth0_scan_%s_%s.json", domain, timestamp))
	if err := writeJSONFile(rep, jsonPath); err != nil {
		return "", "", err
	}

	textPath = filepath.Join(outputDir, fmt.Sprintf("auth0_summary_%s_%s.txt", domain, timestamp))
	file, err := os.Create(textPath)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	if err := RenderText(file, rep); err != nil {
		return "", "", err
	}

	return jsonPath, textPath, nil
}

func writeJSONFile(rep Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderText writes the human-readable summary.
func RenderText(w io.Writer, rep Report) error {
	divider := strings.Repeat("=", 70)
	section := strings.Repeat("-", 70)

	meta := rep.ScanMetadata
	risk := rep.RiskSummary

	var b strings.Builder
	b.WriteString(divider + "\n")
	b.WriteString("AUTH0 PENETRATION TEST SUMMARY\n")
	b.WriteString(divider + "\n\n")

	fmt.Fprintf(&b, "Target Domain: %s\n", meta.TargetDomain)
	fmt.Fprintf(&b, "Client ID: %s\n", meta.ClientID)
	fmt.Fprintf(&b, "Scan Start: %s\n", meta.ScanStart.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %.1f seconds\n\n", meta.ScanDurationSeconds)

	b.WriteString(section + "\n")
	b.WriteString("RISK SUMMARY\n")
	b.WriteString(section + "\n\n")

	fmt.Fprintf(&b, "Overall Risk Level: %s\n\n", risk.OverallRisk)
	fmt.Fprintf(&b, "Critical Findings: %d\n", risk.CriticalFindings)
	fmt.Fprintf(&b, "High Findings: %d\n", risk.HighFindings)
	fmt.Fprintf(&b, "Medium Findings: %d\n", risk.MediumFindings)
	fmt.Fprintf(&b, "Low Findings: %d\n\n", risk.LowFindings)

	if len(rep.Phase2Connections.DiscoveredConnections) > 0 {
		fmt.Fprintf(&b, "Discovered Connections: %s\n\n", strings.Join(rep.Phase2Connections.DiscoveredConnections, ", "))
	}

	if len(risk.Recommendations) > 0 {
		b.WriteString(section + "\n")
		b.WriteString("TOP RECOMMENDATIONS\n")
		b.WriteString(section + "\n\n")

		for i, rec := range risk.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
		b.WriteString("\n")
	}

	b.WriteString(section + "\n")
	b.WriteString("DETAILED FINDINGS\n")
	b.WriteString(section + "\n\n")

	for _, check := range rep.AllChecks {
		if !check.Vulnerable {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", check.Severity, check.CheckName)
		fmt.Fprintf(&b, "  Phase: %s\n", check.Phase)
		if check.RiskDescription != "" {
			fmt.Fprintf(&b, "  Risk: %s\n", check.RiskDescription)
		}
		b.WriteString("\n")
	}

	b.WriteString(divider + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(divider + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
