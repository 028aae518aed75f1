package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "auth0scan.config.yml"

	// DefaultUserAgent mimics a desktop browser so probes blend into
	// normal tenant traffic.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	envDomain         = "AUTH0SCAN_DOMAIN"
	envClientID       = "AUTH0SCAN_CLIENT_ID"
	envTargetApp      = "AUTH0SCAN_TARGET_APP"
	envWordlist       = "AUTH0SCAN_WORDLIST"
	envKeyword        = "AUTH0SCAN_KEYWORD"
	envEnumerateUser  = "AUTH0SCAN_ENUMERATE_USER"
	envOutputDir      = "AUTH0SCAN_OUTPUT_DIR"
	envRateLimitDelay = "AUTH0SCAN_RATE_LIMIT_DELAY"
	envWorkers        = "AUTH0SCAN_WORKERS"
	envProxy          = "AUTH0SCAN_PROXY"
	envUserAgent      = "AUTH0SCAN_USER_AGENT"
	envCleanup        = "AUTH0SCAN_CLEANUP"
	envPhases         = "AUTH0SCAN_PHASES"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// ScanConfig contains the fully merged run parameters. It is built once at
// startup and treated as read-only afterwards.
type ScanConfig struct {
	Domain       string
	ClientID     string
	TargetAppURL string

	ConnectionWordlist string
	ConnectionsKeyword string
	EnumerateUser      string

	OutputDir      string
	RateLimitDelay float64
	// Workers is accepted for CLI compatibility; the scan itself runs
	// strictly sequentially so lockout detection stays reliable.
	Workers   int
	Proxy     string
	UserAgent string

	CleanupTestAccounts bool
	Phases              []int
}

// Overrides captures values coming from the config file, env vars, or CLI flags.
type Overrides struct {
	Domain       string
	ClientID     string
	TargetAppURL string

	ConnectionWordlist string
	ConnectionsKeyword string
	EnumerateUser      string

	OutputDir         string
	RateLimitDelay    float64
	RateLimitDelaySet bool
	Workers           int
	WorkersSet        bool
	Proxy             string
	UserAgent         string
	Cleanup           *bool
	Phases            []int
	PhasesSet         bool
}

// DefaultScanConfig returns the baseline configuration when no overrides are provided.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		OutputDir:           "output",
		RateLimitDelay:      1.0,
		Workers:             5,
		UserAgent:           DefaultUserAgent,
		CleanupTestAccounts: true,
		Phases:              []int{1, 2, 3},
	}
}

// Load resolves the final scan configuration.
func (l Loader) Load(override Overrides) (ScanConfig, error) {
	cfg := DefaultScanConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg.apply(fileOv)
	}

	cfg.apply(overridesFromEnv())
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for a scan.
func (c ScanConfig) Validate() error {
	if c.Domain == "" {
		return errors.New("tenant domain must be specified; provide --domain or set " + envDomain)
	}

	if c.ClientID == "" {
		return errors.New("client id must be specified; provide --client-id or set " + envClientID)
	}

	if c.TargetAppURL == "" {
		return errors.New("target application URL must be specified; provide --target-app or set " + envTargetApp)
	}

	if !strings.HasPrefix(c.TargetAppURL, "http://") && !strings.HasPrefix(c.TargetAppURL, "https://") {
		return fmt.Errorf("target application URL must be absolute (got %q)", c.TargetAppURL)
	}

	if c.RateLimitDelay < 0 {
		return fmt.Errorf("rate limit delay cannot be negative (got %g)", c.RateLimitDelay)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %d)", c.Workers)
	}

	if len(c.Phases) == 0 {
		return errors.New("at least one phase must be selected")
	}

	for _, phase := range c.Phases {
		if phase < 1 || phase > 3 {
			return fmt.Errorf("unknown phase %d (valid phases: 1, 2, 3)", phase)
		}
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	return nil
}

// RunPhase reports whether the given phase is selected.
func (c ScanConfig) RunPhase(phase int) bool {
	for _, p := range c.Phases {
		if p == phase {
			return true
		}
	}
	return false
}

func (c *ScanConfig) apply(src Overrides) {
	if src.Domain != "" {
		c.Domain = strings.TrimSpace(src.Domain)
	}

	if src.ClientID != "" {
		c.ClientID = strings.TrimSpace(src.ClientID)
	}

	if src.TargetAppURL != "" {
		c.TargetAppURL = strings.TrimRight(strings.TrimSpace(src.TargetAppURL), "/")
	}

	if src.ConnectionWordlist != "" {
		c.ConnectionWordlist = src.ConnectionWordlist
	}

	if src.ConnectionsKeyword != "" {
		c.ConnectionsKeyword = src.ConnectionsKeyword
	}

	if src.EnumerateUser != "" {
		c.EnumerateUser = src.EnumerateUser
	}

	if src.OutputDir != "" {
		c.OutputDir = src.OutputDir
	}

	if src.RateLimitDelaySet {
		c.RateLimitDelay = src.RateLimitDelay
	}

	if src.WorkersSet {
		c.Workers = src.Workers
	}

	if src.Proxy != "" {
		c.Proxy = src.Proxy
	}

	if src.UserAgent != "" {
		c.UserAgent = src.UserAgent
	}

	if src.Cleanup != nil {
		c.CleanupTestAccounts = *src.Cleanup
	}

	if src.PhasesSet {
		c.Phases = src.Phases
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		Domain             string    `yaml:"domain"`
		ClientID           string    `yaml:"clientId"`
		TargetApp          string    `yaml:"targetApp"`
		ConnectionWordlist string    `yaml:"connectionWordlist"`
		ConnectionsKeyword string    `yaml:"connectionsKeyword"`
		EnumerateUser      string    `yaml:"enumerateUser"`
		OutputDir          string    `yaml:"outputDir"`
		RateLimitDelay     *float64  `yaml:"rateLimitDelay"`
		Workers            *int      `yaml:"workers"`
		Proxy              string    `yaml:"proxy"`
		UserAgent          string    `yaml:"userAgent"`
		Cleanup            *bool     `yaml:"cleanup"`
		Phases             phaseList `yaml:"phases"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		Domain:             raw.Domain,
		ClientID:           raw.ClientID,
		TargetAppURL:       raw.TargetApp,
		ConnectionWordlist: raw.ConnectionWordlist,
		ConnectionsKeyword: raw.ConnectionsKeyword,
		EnumerateUser:      raw.EnumerateUser,
		OutputDir:          raw.OutputDir,
		Proxy:              raw.Proxy,
		UserAgent:          raw.UserAgent,
	}

	if raw.RateLimitDelay != nil {
		over.RateLimitDelay = *raw.RateLimitDelay
		over.RateLimitDelaySet = true
	}

	if raw.Workers != nil {
		over.Workers = *raw.Workers
		over.WorkersSet = true
	}

	if raw.Cleanup != nil {
		over.Cleanup = raw.Cleanup
	}

	if len(raw.Phases) > 0 {
		over.Phases = raw.Phases
		over.PhasesSet = true
	}

	return over, nil
}

func overridesFromEnv() Overrides {
	ov := Overrides{
		Domain:             os.Getenv(envDomain),
		ClientID:           os.Getenv(envClientID),
		TargetAppURL:       os.Getenv(envTargetApp),
		ConnectionWordlist: os.Getenv(envWordlist),
		ConnectionsKeyword: os.Getenv(envKeyword),
		EnumerateUser:      os.Getenv(envEnumerateUser),
		OutputDir:          os.Getenv(envOutputDir),
		Proxy:              os.Getenv(envProxy),
		UserAgent:          os.Getenv(envUserAgent),
	}

	if value := os.Getenv(envRateLimitDelay); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			ov.RateLimitDelay = parsed
			ov.RateLimitDelaySet = true
		}
	}

	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Workers = parsed
			ov.WorkersSet = true
		}
	}

	if value := os.Getenv(envCleanup); value != "" {
		parsed := strings.EqualFold(value, "true") || value == "1"
		ov.Cleanup = &parsed
	}

	if value := os.Getenv(envPhases); value != "" {
		if phases, err := ParsePhases(value); err == nil {
			ov.Phases = phases
			ov.PhasesSet = true
		}
	}

	return ov
}

// ParsePhases turns comma separated phase numbers into a sorted, deduplicated list.
func ParsePhases(input string) ([]int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}

	seen := map[int]struct{}{}
	var phases []int
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		phase, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid phase %q", part)
		}
		if _, dup := seen[phase]; dup {
			continue
		}
		seen[phase] = struct{}{}
		phases = append(phases, phase)
	}

	sort.Ints(phases)
	return phases, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// phaseList enables YAML fields that can be specified as a scalar or sequence.
type phaseList []int

func (p *phaseList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []int
		for _, node := range value.Content {
			phase, err := strconv.Atoi(strings.TrimSpace(node.Value))
			if err != nil {
				return fmt.Errorf("invalid phase %q", node.Value)
			}
			out = append(out, phase)
		}
		*p = out
	case yaml.ScalarNode:
		phases, err := ParsePhases(value.Value)
		if err != nil {
			return err
		}
		*p = phases
	default:
		return fmt.Errorf("unsupported YAML type for phases")
	}
	return nil
}
