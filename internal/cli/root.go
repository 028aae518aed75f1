package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/auth0scan/internal/config"
)

const version = "1.0.0"

// ExitError carries a process exit code through the cobra error path.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the root command tree and runs the CLI.
func Execute(ctx context.Context) error {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "auth0scan",
		Short:         "Security assessment scanner for Auth0 identity tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("auth0scan version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to auth0scan.config.yml (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
	}

	rootCmd.AddCommand(
		newScanCmd(loader),
		newReportCmd(),
		newDoctorCmd(loader),
	)

	return rootCmd.ExecuteContext(ctx)
}

type rootOptions struct {
	ConfigPath string
}
