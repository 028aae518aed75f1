package config

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxConnectionNameLength is the Auth0 limit on connection names.
const maxConnectionNameLength = 35

// DefaultConnections are the built-in connection names tested on every tenant.
var DefaultConnections = []string{
	"Username-Password-Authentication",
	"email",
	"sms",
	"google-oauth2",
	"facebook",
	"github",
	"twitter",
	"linkedin",
	"windowslive",
	"apple",
	"Database-Connection",
	"Legacy-Database",
	"Corporate-AD",
	"LDAP",
}

var combinationSuffixes = []string{
	// Auth methods
	"oauth2", "oauth", "oidc", "saml", "saml2", "SSO", "SAML", "Auth",
	"Authentication", "Login", "AD", "LDAP", "ActiveDirectory", "ADFS",
	"Okta", "Azure", "AzureAD", "Google", "Facebook", "GitHub", "Microsoft",

	// Database/connection types
	"Database", "DB", "Connection", "Users", "Accounts", "Members",
	"Customers", "Employees", "Staff", "Admin", "Admins",

	// Environments
	"production", "prod", "prd", "live", "development", "dev", "develop",
	"staging", "stage", "stg", "test", "testing", "qa", "uat", "demo",
	"sandbox", "sbx", "local", "localhost",

	// Descriptors
	"internal", "external", "public", "private", "corporate", "enterprise",
	"business", "partner", "vendor", "client", "legacy", "old", "new",
	"v1", "v2", "v3", "api", "app", "web", "mobile",

	// Geographic
	"us", "eu", "uk", "apac", "global", "america", "europe", "asia",

	// Special combinations
	"Username-Password-Authentication", "email", "sms", "passwordless",
}

var combinationPrefixes = []string{
	// Environments
	"production", "prod", "prd", "live", "development", "dev", "develop",
	"staging", "stage", "stg", "test", "testing", "qa", "uat", "demo",
	"sandbox", "sbx", "local",

	// Descriptors
	"internal", "external", "public", "private", "corporate", "enterprise",
	"business", "partner", "vendor", "client", "legacy", "old", "new",

	// Geographic
	"us", "eu", "uk", "apac", "global", "america", "europe", "asia",

	// Company-specific
	"company", "corp", "org", "team",
}

// GenerateConnectionCombinations derives connection name candidates from a
// keyword, pairing it with common suffixes and prefixes. Candidates longer
// than the Auth0 connection name limit are excluded. The returned list is
// deduplicated, preserving first occurrence order.
func GenerateConnectionCombinations(keyword string) []string {
	var combinations []string

	if len(keyword) <= maxConnectionNameLength {
		combinations = append(combinations, keyword, capitalize(keyword), strings.ToUpper(keyword))
	}

	for _, suffix := range combinationSuffixes {
		if len(suffix) > maxConnectionNameLength {
			continue
		}

		combinations = append(combinations,
			keyword+"-"+suffix,
			capitalize(keyword)+"-"+suffix,
			keyword+"-"+capitalize(suffix),
			capitalize(keyword)+"-"+capitalize(suffix),
			keyword+suffix,
			capitalize(keyword)+capitalize(suffix),
		)
	}

	for _, prefix := range combinationPrefixes {
		if len(prefix) > maxConnectionNameLength {
			continue
		}

		combinations = append(combinations,
			prefix+"-"+keyword,
			capitalize(prefix)+"-"+keyword,
			prefix+"-"+capitalize(keyword),
			capitalize(prefix)+"-"+capitalize(keyword),
			prefix+keyword,
			capitalize(prefix)+capitalize(keyword),
		)
	}

	return dedupeWithinLimit(combinations)
}

// LoadConnectionWordlist assembles the candidate list for connection
// enumeration: the default names, then entries from the configured wordlist
// file (blank lines and # comments skipped), then generated keyword
// combinations. A configured wordlist path that does not exist is skipped;
// the scan proceeds with the remaining candidates. Duplicates are removed
// preserving first occurrence order.
func LoadConnectionWordlist(cfg ScanConfig) ([]string, error) {
	connections := append([]string(nil), DefaultConnections...)

	if cfg.ConnectionWordlist != "" {
		entries, err := readWordlistFile(cfg.ConnectionWordlist)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		} else {
			connections = append(connections, entries...)
		}
	}

	if cfg.ConnectionsKeyword != "" {
		connections = append(connections, GenerateConnectionCombinations(cfg.ConnectionsKeyword)...)
	}

	return dedupe(connections), nil
}

func readWordlistFile(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var entries []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeWithinLimit(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range values {
		if len(v) > maxConnectionNameLength {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// capitalize uppercases the first byte and lowercases the rest, so mixed-case
// suffixes like "SSO" yield the "Sso" candidate variant.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
