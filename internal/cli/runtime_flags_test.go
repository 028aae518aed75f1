package cli

import (
	"testing"

	"github.com/spf13/cobra"
)

func newFlagTestCmd() (*cobra.Command, *runtimeFlagSet) {
	flags := &runtimeFlagSet{}
	cmd := &cobra.Command{Use: "test"}
	bindRuntimeFlags(cmd, flags)
	return cmd, flags
}

func TestToOverridesOnlyIncludesChangedFlags(t *testing.T) {
	cmd, flags := newFlagTestCmd()
	if err := cmd.ParseFlags([]string{
		"--domain", "victim.auth0.com",
		"--rate-limit", "0.5",
		"--phases", "1,3",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	ov, err := flags.toOverrides(cmd)
	if err != nil {
		t.Fatalf("to overrides: %v", err)
	}

	if ov.Domain != "victim.auth0.com" {
		t.Fatalf("unexpected domain %q", ov.Domain)
	}

	if !ov.RateLimitDelaySet || ov.RateLimitDelay != 0.5 {
		t.Fatalf("rate limit override missing: %+v", ov)
	}

	if !ov.PhasesSet || len(ov.Phases) != 2 || ov.Phases[0] != 1 || ov.Phases[1] != 3 {
		t.Fatalf("unexpected phases: %+v", ov.Phases)
	}

	if ov.ClientID != "" || ov.WorkersSet || ov.Cleanup != nil {
		t.Fatalf("untouched flags must not override: %+v", ov)
	}
}

func TestToOverridesRejectsInvalidPhases(t *testing.T) {
	cmd, flags := newFlagTestCmd()
	if err := cmd.ParseFlags([]string{"--phases", "1,two"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := flags.toOverrides(cmd); err == nil {
		t.Fatal("expected error for non-numeric phase")
	}
}

func TestToOverridesCarriesExplicitCleanup(t *testing.T) {
	cmd, flags := newFlagTestCmd()
	if err := cmd.ParseFlags([]string{"--cleanup=false"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	ov, err := flags.toOverrides(cmd)
	if err != nil {
		t.Fatalf("to overrides: %v", err)
	}

	if ov.Cleanup == nil || *ov.Cleanup {
		t.Fatalf("expected cleanup=false override, got %+v", ov.Cleanup)
	}
}
