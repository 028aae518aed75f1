package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/auth0scan/internal/config"
)

// runtimeFlagSet tracks shared scan/doctor flags before they are converted
// into config overrides.
type runtimeFlagSet struct {
	domain         string
	clientID       string
	targetApp      string
	wordlist       string
	keyword        string
	enumerateUser  string
	outputDir      string
	rateLimitDelay float64
	workers        int
	proxy          string
	userAgent      string
	cleanup        bool
	phases         string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.domain, "domain", "", "Auth0 tenant domain (e.g. victim.auth0.com)")
	cmd.Flags().StringVar(&flags.clientID, "client-id", "", "Application client ID to scan with")
	cmd.Flags().StringVar(&flags.targetApp, "target-app", "", "Target application URL used as redirect target")
	cmd.Flags().StringVar(&flags.wordlist, "wordlist", "", "Path to an additional connection-name wordlist")
	cmd.Flags().StringVar(&flags.keyword, "keyword", "", "Organization keyword for connection-name combinations")
	cmd.Flags().StringVar(&flags.enumerateUser, "enumerate-user", "", "Email address to test for username enumeration")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Directory for scan artifacts")
	cmd.Flags().Float64Var(&flags.rateLimitDelay, "rate-limit", 0, "Seconds to wait between requests")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Worker count (accepted for compatibility; scan is sequential)")
	cmd.Flags().StringVar(&flags.proxy, "proxy", "", "HTTP proxy URL (e.g. http://127.0.0.1:8080)")
	cmd.Flags().StringVar(&flags.userAgent, "user-agent", "", "User-Agent header for all requests")
	cmd.Flags().BoolVar(&flags.cleanup, "cleanup", true, "Attempt to remove accounts created during testing")
	cmd.Flags().StringVar(&flags.phases, "phases", "", "Comma-separated phases to run (1,2,3)")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) (config.Overrides, error) {
	ov := config.Overrides{}

	if cmd.Flags().Changed("domain") {
		ov.Domain = f.domain
	}

	if cmd.Flags().Changed("client-id") {
		ov.ClientID = f.clientID
	}

	if cmd.Flags().Changed("target-app") {
		ov.TargetAppURL = f.targetApp
	}

	if cmd.Flags().Changed("wordlist") {
		ov.ConnectionWordlist = f.wordlist
	}

	if cmd.Flags().Changed("keyword") {
		ov.ConnectionsKeyword = f.keyword
	}

	if cmd.Flags().Changed("enumerate-user") {
		ov.EnumerateUser = f.enumerateUser
	}

	if cmd.Flags().Changed("output-dir") {
		ov.OutputDir = f.outputDir
	}

	if cmd.Flags().Changed("rate-limit") {
		ov.RateLimitDelay = f.rateLimitDelay
		ov.RateLimitDelaySet = true
	}

	if cmd.Flags().Changed("workers") {
		ov.Workers = f.workers
		ov.WorkersSet = true
	}

	if cmd.Flags().Changed("proxy") {
		ov.Proxy = f.proxy
	}

	if cmd.Flags().Changed("user-agent") {
		ov.UserAgent = f.userAgent
	}

	if cmd.Flags().Changed("cleanup") {
		cleanup := f.cleanup
		ov.Cleanup = &cleanup
	}

	if cmd.Flags().Changed("phases") {
		phases, err := config.ParsePhases(f.phases)
		if err != nil {
			return ov, err
		}
		ov.Phases = phases
		ov.PhasesSet = true
	}

	return ov, nil
}
