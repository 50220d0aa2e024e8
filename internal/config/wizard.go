// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// wizardAnswers are the minimum fields needed for a working config file.
type wizardAnswers struct {
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
	City   string  `yaml:"city"`
	APIKey string  `yaml:"api_key"`
	Units  string  `yaml:"units"`
}

// Wizard asks for the minimum required settings on in/out and writes a complete config file
// with all defaults filled in to dst. Invalid answers are reported and asked again.
func Wizard(in io.Reader, out io.Writer, dst string) (*Config, error) {
	scanner := bufio.NewScanner(in)
	_, _ = fmt.Fprintln(out, "Interactive config builder - press Enter for defaults.")

	for {
		answers, err := askWizardQuestions(scanner, out)
		if err != nil {
			return nil, err
		}

		conf, err := answers.toConfig()
		if err != nil {
			_, _ = fmt.Fprintf(out, "\nConfig error: %s\nPlease re-enter the values.\n\n", err)
			continue
		}

		data, err := conf.MarshalFile()
		if err != nil {
			return nil, err
		}
		if err = os.WriteFile(dst, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write config file: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Config written to %s\n", dst)
		return conf, nil
	}
}

func askWizardQuestions(scanner *bufio.Scanner, out io.Writer) (*wizardAnswers, error) {
	answers := new(wizardAnswers)
	var err error

	if answers.Lat, err = askFloat(scanner, out, "Latitude"); err != nil {
		return nil, err
	}
	if answers.Lon, err = askFloat(scanner, out, "Longitude"); err != nil {
		return nil, err
	}
	if answers.City, err = ask(scanner, out, "City name", ""); err != nil {
		return nil, err
	}
	if answers.APIKey, err = ask(scanner, out, "OpenWeather API key", ""); err != nil {
		return nil, err
	}
	if answers.Units, err = ask(scanner, out, "Units [imperial|metric]", UnitsImperial); err != nil {
		return nil, err
	}
	return answers, nil
}

// MarshalFile encodes the config as YAML in the same shape the loader reads.
func (c *Config) MarshalFile() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		value := node.Content[i+1]
		switch node.Content[i].Value {
		case "full_refresh_interval":
			value.SetString(c.FullRefreshInterval.String())
		case "loglevel":
			value.Kind, value.Tag, value.Style = yaml.ScalarNode, "!!int", 0
			value.Value = strconv.Itoa(int(c.LogLevel))
		}
	}
	data, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// toConfig runs the answers through the regular loader so defaults and validation apply.
func (w *wizardAnswers) toConfig() (*Config, error) {
	data, err := yaml.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}
	dir, cleanup, err := stage("config.yaml", data)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return NewFromFile(dir, "config.yaml")
}

func ask(scanner *bufio.Scanner, out io.Writer, prompt, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", prompt, def)
	} else {
		_, _ = fmt.Fprintf(out, "%s: ", prompt)
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	answer := strings.TrimSpace(scanner.Text())
	if answer == "" {
		answer = def
	}
	return answer, nil
}

func askFloat(scanner *bufio.Scanner, out io.Writer, prompt string) (float64, error) {
	for {
		answer, err := ask(scanner, out, prompt, "")
		if err != nil {
			return 0, err
		}
		value, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return value, nil
		}
		_, _ = fmt.Fprintf(out, "%q is not a number\n", answer)
	}
}

// EnsureDir creates the parent directory of dst if needed.
func EnsureDir(dst string) error {
	dir := filepath.Dir(dst)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}
