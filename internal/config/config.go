// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kkyr/fig"

	"github.com/wneessen/inkweather/internal/timefmt"
)

const (
	configEnv = "INKWEATHER"

	// ConfigPathEnv names the environment variable pointing to a config file.
	ConfigPathEnv = "INKWEATHER_CONFIG"

	// DefaultPoweroffSOC is the battery level at or below which the device powers off.
	DefaultPoweroffSOC = 8

	// DefaultStayAwakeURL is used when neither the CLI nor the config file names one.
	DefaultStayAwakeURL = "http://localhost:8000/stay_awake.json"

	ProviderOpenWeatherMap = "openweathermap"
	ProviderOpenMeteo      = "open-meteo"

	UnitsImperial = "imperial"
	UnitsMetric   = "metric"

	DisplayAuto     = "auto"
	DisplayIT8951   = "it8951"
	DisplaySimulate = "simulate"

	// validateTag is the struct tag read by the validator. fig owns the "validate" tag.
	validateTag = "check"
)

var ErrNotFound = errors.New("no config file found")

// Config represents the application's configuration structure.
type Config struct {
	Lat    float64 `fig:"lat" yaml:"lat" check:"gte=-90,lte=90"`
	Lon    float64 `fig:"lon" yaml:"lon" check:"gte=-180,lte=180"`
	APIKey string  `fig:"api_key" yaml:"api_key"`
	City   string  `fig:"city" yaml:"city" validate:"required"`

	// Allowed values: imperial, metric
	Units string `fig:"units" yaml:"units" default:"imperial" check:"oneof=imperial metric"`
	// Allowed values: openweathermap, open-meteo
	Provider string     `fig:"provider" yaml:"provider" default:"openweathermap" check:"oneof=openweathermap open-meteo"`
	Locale   string     `fig:"locale" yaml:"locale,omitempty"`
	LogLevel slog.Level `fig:"loglevel" yaml:"loglevel" default:"0"`

	RefreshMinutes      int           `fig:"refresh_minutes" yaml:"refresh_minutes" default:"120" check:"gt=0"`
	FullRefreshInterval time.Duration `fig:"full_refresh_interval" yaml:"full_refresh_interval" default:"6h" check:"gt=0"`
	HourlyCount         int           `fig:"hourly_count" yaml:"hourly_count" default:"8" check:"gte=1,lte=24"`
	DailyCount          int           `fig:"daily_count" yaml:"daily_count" default:"5" check:"gte=1,lte=7"`

	DisplayWidth  int     `fig:"display_width" yaml:"display_width" default:"1872" check:"gt=0"`
	DisplayHeight int     `fig:"display_height" yaml:"display_height" default:"1404" check:"gt=0"`
	VCOMVolts     float64 `fig:"vcom_volts" yaml:"vcom_volts" default:"-1.45" check:"gte=-2,lte=0"`

	// PoweroffSOC is a pointer so an explicit 0 can be told apart from an unset value.
	PoweroffSOC *int `fig:"poweroff_soc" yaml:"poweroff_soc" check:"omitempty,gte=0,lte=100"`
	// StayOnInQuietHours keeps the device running (sleeping in-process) during quiet hours
	// instead of shutting it down.
	StayOnInQuietHours bool `fig:"stay_on_in_quiet_hours" yaml:"stay_on_in_quiet_hours"`

	TimeFormatGeneral  string `fig:"time_format_general" yaml:"time_format_general" default:"%-I:%M %p"`
	TimeFormatHourly   string `fig:"time_format_hourly" yaml:"time_format_hourly" default:"%-I %p"`
	TimeFormatDaily    string `fig:"time_format_daily" yaml:"time_format_daily" default:"%a"`
	TimeFormatFullDate string `fig:"time_format_full_date" yaml:"time_format_full_date" default:"%A, %B %-d"`
	Timezone           string `fig:"timezone" yaml:"timezone" default:"America/New_York"`

	QuietHours struct {
		Start *int `fig:"start" yaml:"start,omitempty" check:"omitempty,gte=0,lte=23"`
		End   *int `fig:"end" yaml:"end,omitempty" check:"omitempty,gte=0,lte=23"`
	} `fig:"quiet_hours" yaml:"quiet_hours,omitempty"`

	StayAwakeURL string `fig:"stay_awake_url" yaml:"stay_awake_url,omitempty" check:"omitempty,url"`
	// IconsDir holds the Weather Icons SVG files referenced by the dashboard.
	IconsDir string `fig:"icons_dir" yaml:"icons_dir" default:"/usr/share/inkweather/icons"`
	// PreviewDir receives the rendered HTML and PNG of each cycle.
	PreviewDir string `fig:"preview_dir" yaml:"preview_dir" default:"preview"`

	Display struct {
		// Allowed values: auto, it8951, simulate
		Driver   string `fig:"driver" yaml:"driver" default:"auto" check:"oneof=auto it8951 simulate"`
		SPIPort  string `fig:"spi_port" yaml:"spi_port,omitempty"`
		HRDYPin  string `fig:"hrdy_pin" yaml:"hrdy_pin" default:"GPIO24"`
		ResetPin string `fig:"reset_pin" yaml:"reset_pin" default:"GPIO17"`
	} `fig:"display" yaml:"display"`

	Battery struct {
		I2CBus       string `fig:"i2c_bus" yaml:"i2c_bus" default:"1"`
		Address      uint16 `fig:"address" yaml:"address" default:"20"`
		RTCWakealarm string `fig:"rtc_wakealarm" yaml:"rtc_wakealarm" default:"/sys/class/rtc/rtc0/wakealarm"`
	} `fig:"battery" yaml:"battery"`

	MQTT struct {
		Enabled  bool   `fig:"enabled" yaml:"enabled"`
		Broker   string `fig:"broker" yaml:"broker" default:"tcp://localhost:1883"`
		Topic    string `fig:"topic" yaml:"topic" default:"inkweather/status"`
		ClientID string `fig:"client_id" yaml:"client_id" default:"inkweather"`
		Username string `fig:"username" yaml:"username,omitempty"`
		Password string `fig:"password" yaml:"password,omitempty"`
	} `fig:"mqtt" yaml:"mqtt"`

	location *time.Location
}

// NewFromFile loads the config file "file" located in the directory "path". A .env file in
// the same directory is loaded into the environment first, then ${VAR} references in the
// file are expanded before the YAML is parsed.
func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	fullPath := filepath.Join(path, file)
	_, err := os.Stat(fullPath)
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}

	dotenv := filepath.Join(path, ".env")
	if _, err = os.Stat(dotenv); err == nil {
		if err = godotenv.Load(dotenv); err != nil {
			return conf, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	staged, cleanup, err := stage(file, Interpolate(raw))
	if err != nil {
		return conf, err
	}
	defer cleanup()

	if err = fig.Load(conf, fig.Dirs(staged), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

// Load loads the config file at the given path. An empty path triggers the lookup in the
// default locations.
func Load(file string) (*Config, error) {
	if file == "" {
		found, err := Find()
		if err != nil {
			return nil, err
		}
		file = found
	}
	return NewFromFile(filepath.Dir(file), filepath.Base(file))
}

// Find returns $INKWEATHER_CONFIG if set, otherwise the first existing file out of
// ./config.yaml, ~/.config/inkweather/config.yaml and /etc/inkweather/config.yaml.
func Find() (string, error) {
	if env := os.Getenv(ConfigPathEnv); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config file from %s not found: %w", ConfigPathEnv, err)
		}
		return env, nil
	}

	candidates := []string{"config.yaml"}
	if homedir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homedir, ".config", "inkweather", "config.yaml"))
	}
	candidates = append(candidates, filepath.Join("/etc", "inkweather", "config.yaml"))

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w (searched: %s)", ErrNotFound, strings.Join(candidates, ", "))
}

// stage writes the interpolated config into a private temporary directory so that fig can
// parse it with its usual defaults and env handling.
func stage(file string, data []byte) (string, func(), error) {
	dir, err := os.MkdirTemp("", "inkweather-config-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	if err = os.WriteFile(filepath.Join(dir, file), data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to stage interpolated config: %w", err)
	}
	return dir, cleanup, nil
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(validateTag)
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v does not satisfy %q", fieldName(fe.Namespace()), fe.Value(),
				ruleString(fe.Tag(), fe.Param()))
		}
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if c.PoweroffSOC == nil {
		soc := DefaultPoweroffSOC
		c.PoweroffSOC = &soc
	}

	if c.Provider == ProviderOpenWeatherMap && len(c.APIKey) < 10 {
		return errors.New("invalid api_key: an OpenWeather API key of at least 10 characters is required")
	}

	switch {
	case c.QuietHours.Start == nil && c.QuietHours.End == nil:
	case c.QuietHours.Start == nil || c.QuietHours.End == nil:
		return errors.New("invalid quiet_hours: both start and end must be set")
	case *c.QuietHours.Start == *c.QuietHours.End:
		return errors.New("invalid quiet_hours: start and end cannot be the same")
	}

	for name, format := range map[string]string{
		"time_format_general":   c.TimeFormatGeneral,
		"time_format_hourly":    c.TimeFormatHourly,
		"time_format_daily":     c.TimeFormatDaily,
		"time_format_full_date": c.TimeFormatFullDate,
	} {
		if err := timefmt.Validate(format); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	c.location = loc

	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.StayAwakeURL != "" {
		if _, err = url.Parse(c.StayAwakeURL); err != nil {
			return fmt.Errorf("invalid stay_awake_url: %w", err)
		}
	}

	return nil
}

// Location returns the configured timezone. It falls back to the local zone for configs that
// were not validated.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// QuietWindow returns the configured quiet hours and whether they are enabled.
func (c *Config) QuietWindow() (start, end int, ok bool) {
	if c.QuietHours.Start == nil || c.QuietHours.End == nil {
		return 0, 0, false
	}
	return *c.QuietHours.Start, *c.QuietHours.End, true
}

// PoweroffThreshold returns the battery level at or below which the device powers off.
func (c *Config) PoweroffThreshold() int {
	if c.PoweroffSOC == nil {
		return DefaultPoweroffSOC
	}
	return *c.PoweroffSOC
}

// IsMetric reports whether metric units are configured.
func (c *Config) IsMetric() bool {
	return strings.EqualFold(c.Units, UnitsMetric)
}

// ResolveStayAwakeURL picks the stay-awake URL: the override wins over the config file, the
// config file wins over the default.
func (c *Config) ResolveStayAwakeURL(override string) string {
	switch {
	case override != "":
		return override
	case c.StayAwakeURL != "":
		return c.StayAwakeURL
	default:
		return DefaultStayAwakeURL
	}
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}

// fieldName turns a validator namespace like "Config.QuietHours.Start" into the YAML key.
func fieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = snake(part)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if upper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ruleString(tag, param string) string {
	if param == "" {
		return tag
	}
	return tag + "=" + param
}
