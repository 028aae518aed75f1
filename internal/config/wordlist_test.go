package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConnectionCombinations(t *testing.T) {
	combos := GenerateConnectionCombinations("x")

	assert.Contains(t, combos, "x")
	assert.Contains(t, combos, "X")
	assert.Contains(t, combos, "x-oauth2")
	assert.Contains(t, combos, "prod-x")

	// Mixed-case suffixes produce both the raw and the capitalized variant.
	assert.Contains(t, combos, "x-SSO")
	assert.Contains(t, combos, "x-Sso")
	assert.Contains(t, combos, "X-Sso")

	for _, combo := range combos {
		assert.LessOrEqual(t, len(combo), maxConnectionNameLength, "combination %q exceeds length cap", combo)
	}

	seen := map[string]struct{}{}
	for _, combo := range combos {
		_, dup := seen[combo]
		assert.False(t, dup, "duplicate combination %q", combo)
		seen[combo] = struct{}{}
	}
}

func TestGenerateConnectionCombinationsDropsOverlongCandidates(t *testing.T) {
	keyword := strings.Repeat("a", 30)
	combos := GenerateConnectionCombinations(keyword)

	assert.Contains(t, combos, keyword)
	assert.NotContains(t, combos, keyword+"-production")
	for _, combo := range combos {
		assert.LessOrEqual(t, len(combo), maxConnectionNameLength)
	}
}

func TestLoadConnectionWordlistDefaultsOnly(t *testing.T) {
	list, err := LoadConnectionWordlist(ScanConfig{})
	require.NoError(t, err)

	assert.Equal(t, DefaultConnections, list)
}

func TestLoadConnectionWordlistMergesFileAndCombinations(t *testing.T) {
	dir := t.TempDir()
	wordlistPath := filepath.Join(dir, "connections.txt")
	content := "custom-db\n\n# a comment\ngoogle-oauth2\nanother\n"
	require.NoError(t, os.WriteFile(wordlistPath, []byte(content), 0o644))

	cfg := ScanConfig{
		ConnectionWordlist: wordlistPath,
		ConnectionsKeyword: "acme",
	}

	list, err := LoadConnectionWordlist(cfg)
	require.NoError(t, err)

	assert.Contains(t, list, "custom-db")
	assert.Contains(t, list, "another")
	assert.Contains(t, list, "acme-oauth2")
	assert.NotContains(t, list, "# a comment")

	// google-oauth2 appears in both defaults and the file; first occurrence wins.
	count := 0
	for _, name := range list {
		if name == "google-oauth2" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// Defaults keep their position at the head of the list.
	assert.Equal(t, "Username-Password-Authentication", list[0])
}

func TestLoadConnectionWordlistSkipsMissingFile(t *testing.T) {
	cfg := ScanConfig{ConnectionWordlist: filepath.Join(t.TempDir(), "missing.txt")}

	list, err := LoadConnectionWordlist(cfg)
	require.NoError(t, err)

	assert.Equal(t, DefaultConnections, list)
}

func TestCapitalizeLowercasesTail(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"x":       "X",
		"acme":    "Acme",
		"SSO":     "Sso",
		"AzureAD": "Azuread",
	}

	for in, want := range cases {
		assert.Equal(t, want, capitalize(in), "capitalize(%q)", in)
	}
}
