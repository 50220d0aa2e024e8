// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper contains helpers shared by the package tests.
package testhelper

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wneessen/inkweather/internal/config"
)

// baseConfig is the smallest config that validates. It uses UTC so tests are independent of
// the host timezone.
const baseConfig = `lat: 40.7128
lon: -74.006
city: Test City
api_key: "0123456789abcdef"
timezone: UTC
locale: en
`

// TestOnlineAPIURL is a public endpoint returning JSON, used by integration tests only.
const TestOnlineAPIURL = "https://httpbin.org/json"

// MockRoundTripper lets tests replace the transport of an http.Client.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

// RoundTrip implements http.RoundTripper.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// JSONResponse returns a RoundTripper func that answers every request with the given status and body.
func JSONResponse(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     header,
		}, nil
	}
}

// PerformIntegrationTests skips the test unless PERFORM_INTEGRATION_TESTS is set.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if os.Getenv("PERFORM_INTEGRATION_TESTS") == "" {
		t.Skip("skipping integration test, set PERFORM_INTEGRATION_TESTS to run")
	}
}

// Config writes a config file made of the base config plus extra YAML lines and loads it.
// Top-level keys in extra replace the base values.
func Config(t *testing.T, extra string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(mergeConfig(extra)), 0o600); err != nil {
		t.Fatalf("failed to write config file: %s", err)
	}
	conf, err := config.NewFromFile(dir, "config.yaml")
	if err != nil {
		t.Fatalf("failed to load config: %s", err)
	}
	return conf
}

func mergeConfig(extra string) string {
	override := make(map[string]bool)
	for _, line := range strings.Split(extra, "\n") {
		if key, _, ok := strings.Cut(line, ":"); ok && !strings.HasPrefix(line, " ") {
			override[key] = true
		}
	}
	var buf strings.Builder
	for _, line := range strings.Split(baseConfig, "\n") {
		if key, _, ok := strings.Cut(line, ":"); ok && override[key] {
			continue
		}
		if line != "" {
			buf.WriteString(line + "\n")
		}
	}
	buf.WriteString(extra)
	return buf.String()
}
