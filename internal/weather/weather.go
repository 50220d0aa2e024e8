// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"strings"
	"time"

	"github.com/wneessen/inkweather/internal/vartype"
)

// AirQualityUnavailable is the air-quality label used when no index could be retrieved.
const AirQualityUnavailable = vartype.Placeholder

// Provider is implemented by each weather API backend.
type Provider interface {
	Name() string
	GetWeather(ctx context.Context, coords Coordinates) (*Response, error)
}

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Response holds one fetch worth of weather data. It is created fresh per fetch and not
// modified after it has been returned by a Provider.
type Response struct {
	GeneratedAt time.Time
	Coordinates Coordinates
	Timezone    string

	Current    Current
	Hourly     []Hourly
	Daily      []Daily
	AirQuality AirQuality
}

// Condition is a weather condition in OpenWeather terms. Providers with other code tables
// map onto it.
type Condition struct {
	ID          int
	Main        string
	Description string
	// Icon is the OpenWeather icon code, e.g. "01d". The last character tells day from night.
	Icon string
}

// IsDay reports whether the condition icon is a daytime icon.
func (c Condition) IsDay() bool {
	return !strings.HasSuffix(c.Icon, "n")
}

type Current struct {
	Time       time.Time
	Sunrise    time.Time
	Sunset     time.Time
	Temp       float64
	FeelsLike  float64
	Pressure   float64
	Humidity   int
	DewPoint   vartype.VarFloat64
	UVI        vartype.VarFloat64
	Visibility vartype.VarInt
	WindSpeed  float64
	WindDeg    float64
	WindGust   vartype.VarFloat64
	Rain1h     float64
	Snow1h     float64
	Conditions []Condition
}

// Condition returns the primary condition or the zero value.
func (c Current) Condition() Condition {
	return primary(c.Conditions)
}

// Daylight returns the time between sunrise and sunset.
func (c Current) Daylight() time.Duration {
	if c.Sunset.Before(c.Sunrise) {
		return 0
	}
	return c.Sunset.Sub(c.Sunrise)
}

type Hourly struct {
	Time       time.Time
	Temp       float64
	FeelsLike  float64
	WindSpeed  vartype.VarFloat64
	WindDeg    vartype.VarFloat64
	UVI        vartype.VarFloat64
	Pop        float64
	Rain1h     float64
	Snow1h     float64
	Conditions []Condition
}

// Condition returns the primary condition or the zero value.
func (h Hourly) Condition() Condition {
	return primary(h.Conditions)
}

// Precipitation returns the one-hour rain amount, or the snow amount if there is no rain.
func (h Hourly) Precipitation() float64 {
	if h.Rain1h > 0 {
		return h.Rain1h
	}
	return h.Snow1h
}

// DailyTemp holds the temperatures over the course of a day.
type DailyTemp struct {
	Day   float64
	Night float64
	Eve   float64
	Morn  float64
	Min   float64
	Max   float64
}

type Daily struct {
	Time    time.Time
	Sunrise time.Time
	Sunset  time.Time
	Temp    DailyTemp
	UVI     vartype.VarFloat64
	// MoonPhase is the fraction of the lunar cycle: 0 and 1 are new moon, 0.5 is full moon.
	MoonPhase  vartype.VarFloat64
	Pop        float64
	Rain       float64
	Snow       float64
	Summary    string
	Conditions []Condition
}

// Condition returns the primary condition or the zero value.
func (d Daily) Condition() Condition {
	return primary(d.Conditions)
}

// AirQuality is the best-effort air-quality summary. The zero value is "not available".
type AirQuality struct {
	// Index is the OpenWeather AQI, 1 (good) to 5 (very poor), 0 if unknown.
	Index      int
	Components map[string]float64
}

var aqiLabels = []string{"", "Good", "Fair", "Moderate", "Poor", "Very Poor"}

// Available reports whether an index was retrieved.
func (a AirQuality) Available() bool {
	return a.Index > 0 && a.Index < len(aqiLabels)
}

// Label returns the English label for the index, or AirQualityUnavailable.
func (a AirQuality) Label() string {
	if !a.Available() {
		return AirQualityUnavailable
	}
	return aqiLabels[a.Index]
}

func primary(conditions []Condition) Condition {
	if len(conditions) == 0 {
		return Condition{}
	}
	return conditions[0]
}
