package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/auth0scan/internal/banner"
	"github.com/example/auth0scan/internal/client"
	"github.com/example/auth0scan/internal/config"
	"github.com/example/auth0scan/internal/events"
	"github.com/example/auth0scan/internal/report"
	"github.com/example/auth0scan/internal/scanner"
)

func newScanCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var eventsPath string
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the phased assessment against one tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := flags.toOverrides(cmd)
			if err != nil {
				return err
			}

			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			if !noBanner {
				banner.Print(version)
			}

			gw, err := client.New(client.Options{
				Domain:         cfg.Domain,
				RateLimitDelay: time.Duration(cfg.RateLimitDelay * float64(time.Second)),
				Proxy:          cfg.Proxy,
				UserAgent:      cfg.UserAgent,
			})
			if err != nil {
				return err
			}

			sink := events.Sink(events.NewConsole(cmd.OutOrStdout()))
			if eventsPath != "" {
				file, err := os.Create(eventsPath)
				if err != nil {
					return err
				}
				defer file.Close()
				sink = events.Multi(sink, events.NewEmitter(file))
			}

			rep, err := scanner.New(cfg, gw, sink).Run(cmd.Context())
			if err != nil {
				return err
			}

			jsonPath, textPath, err := report.WriteFiles(rep, cfg.OutputDir)
			if err != nil {
				return err
			}

			for _, path := range []string{jsonPath, textPath} {
				_ = sink.Emit(events.Event{Type: events.TypeArtifact, Message: "Report written to " + path, Fields: map[string]interface{}{"path": path}})
			}

			if err := report.RenderText(cmd.OutOrStdout(), rep); err != nil {
				return err
			}

			// Exit code reflects the worst finding tier: 2 for critical,
			// 1 for high, 0 otherwise.
			switch {
			case rep.RiskSummary.CriticalFindings > 0:
				return &ExitError{
					Code: 2,
					Err:  fmt.Errorf("%d critical finding(s)", rep.RiskSummary.CriticalFindings),
				}
			case rep.RiskSummary.HighFindings > 0:
				return &ExitError{
					Code: 1,
					Err:  fmt.Errorf("%d high finding(s)", rep.RiskSummary.HighFindings),
				}
			}

			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().StringVar(&eventsPath, "events", "", "Optional path for an NDJSON event log")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "Suppress the startup banner")

	return cmd
}
