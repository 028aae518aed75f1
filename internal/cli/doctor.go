package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/auth0scan/internal/client"
	"github.com/example/auth0scan/internal/config"
)

type doctorCheck struct {
	Name   string
	Status string // "✓", "✗", or "⊘"
	Detail string
	Error  error
}

func newDoctorCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var timeout int

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, tenant reachability, and the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := flags.toOverrides(cmd)
			if err != nil {
				return err
			}

			cfg, err := loader.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeout)*time.Second)
			defer cancel()

			checks := runDoctorChecks(ctx, cfg)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return &ExitError{Code: 1, Err: fmt.Errorf("doctor checks failed")}
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. Ready to scan.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().IntVar(&timeout, "timeout", 30, "Timeout in seconds for network checks")

	return cmd
}

func runDoctorChecks(ctx context.Context, cfg config.ScanConfig) []doctorCheck {
	checks := []doctorCheck{checkGoVersion(), checkConfiguration(cfg)}

	if cfg.Domain != "" {
		checks = append(checks, checkTenantReachability(ctx, cfg))
	}

	checks = append(checks, checkOutputDirectory(cfg.OutputDir))
	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: "✓",
		Detail: fmt.Sprintf("Version %s", runtime.Version()),
	}
}

func checkConfiguration(cfg config.ScanConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: "✗",
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: "✓",
		Detail: fmt.Sprintf("domain=%s, phases=%v", cfg.Domain, cfg.Phases),
	}
}

func checkTenantReachability(ctx context.Context, cfg config.ScanConfig) doctorCheck {
	check := doctorCheck{Name: fmt.Sprintf("Tenant: %s", cfg.Domain)}

	gw, err := client.New(client.Options{
		Domain:    cfg.Domain,
		Proxy:     cfg.Proxy,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		check.Status = "✗"
		check.Detail = "Invalid gateway configuration"
		check.Error = err
		return check
	}

	resp, err := gw.Get(ctx, "/.well-known/openid-configuration", nil)
	if err != nil {
		check.Status = "✗"
		check.Detail = "Unreachable"
		check.Error = err
		return check
	}

	check.Status = "✓"
	check.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return check
}

func checkOutputDirectory(outputDir string) doctorCheck {
	if err := ensureOutputDir(outputDir); err != nil {
		return doctorCheck{
			Name:   "Output Directory",
			Status: "✗",
			Detail: outputDir,
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Output Directory",
		Status: "✓",
		Detail: outputDir,
	}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", check.Status, check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}
