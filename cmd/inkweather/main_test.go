// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `lat: 40.7128
lon: -74.006
city: Test City
api_key: "0123456789abcdef"
timezone: UTC
`

func execute(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := bytes.NewBuffer(nil)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %s", err)
	}
	return path
}

func TestConfigValidate(t *testing.T) {
	t.Run("a valid config is reported as valid", func(t *testing.T) {
		out, err := execute(t, "", "config", "validate", writeFile(t, validConfig))
		if err != nil {
			t.Fatalf("failed to validate config: %s", err)
		}
		if !strings.Contains(out, "Config valid") {
			t.Errorf("expected output to contain: %q, got %q", "Config valid", out)
		}
	})
	t.Run("an invalid config fails", func(t *testing.T) {
		out, err := execute(t, "", "config", "validate", writeFile(t, validConfig+"units: kelvin\n"))
		if err == nil {
			t.Fatal("expected validation to fail")
		}
		if strings.Contains(out, "Config valid") {
			t.Error("expected no success message")
		}
	})
	t.Run("a missing file fails", func(t *testing.T) {
		if _, err := execute(t, "", "config", "validate", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected validation of a missing file to fail")
		}
	})
	t.Run("the file argument is required", func(t *testing.T) {
		if _, err := execute(t, "", "config", "validate"); err == nil {
			t.Error("expected missing argument to fail")
		}
	})
}

func TestConfigWizard(t *testing.T) {
	t.Run("the wizard writes a config file", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "sub", "config.yaml")
		out, err := execute(t, "40.7\n-74\nNew York\n0123456789abcdef\nmetric\n", "config", "wizard", dst)
		if err != nil {
			t.Fatalf("failed to run wizard: %s", err)
		}
		if !strings.Contains(out, "Config written to "+dst) {
			t.Errorf("expected output to confirm the written file, got %q", out)
		}
		if _, err = execute(t, "", "config", "validate", dst); err != nil {
			t.Errorf("expected written config to be valid: %s", err)
		}
	})
	t.Run("closed input fails", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "config.yaml")
		if _, err := execute(t, "40.7\n", "config", "wizard", dst); err == nil {
			t.Error("expected wizard to fail on closed input")
		}
	})
}

func TestRunCmd(t *testing.T) {
	t.Run("all flags are registered", func(t *testing.T) {
		cmd := runCmd()
		for _, name := range []string{"config", "preview", "serve", "once", "debug", "stay-awake-url"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q to be registered", name)
			}
		}
		for short, name := range map[string]string{"c": "config", "p": "preview", "s": "serve", "1": "once"} {
			flag := cmd.Flags().ShorthandLookup(short)
			if flag == nil || flag.Name != name {
				t.Errorf("expected shorthand %q to map to %q", short, name)
			}
		}
	})
	t.Run("an invalid config file fails before starting", func(t *testing.T) {
		_, err := execute(t, "", "run", "--config", writeFile(t, "lat: 200\n"), "--preview", "--once")
		if err == nil {
			t.Fatal("expected run to fail")
		}
		if !strings.Contains(err.Error(), "failed to load config") {
			t.Errorf("expected config error, got %s", err)
		}
	})
}
