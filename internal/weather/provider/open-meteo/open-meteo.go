// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hectormalot/omgo"
	"github.com/jonboulle/clockwork"
	"github.com/nathan-osman/go-sunrise"
	"github.com/wneessen/go-moonphase"

	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/vartype"
	"github.com/wneessen/inkweather/internal/weather"
)

const (
	name         = "open-meteo"
	FetchTimeout = time.Second * 10

	// snowfall is reported in centimeters
	cmToMM = 10
)

var hourlyFields = []string{
	"temperature_2m", "apparent_temperature", "weather_code", "wind_speed_10m", "is_day",
	"wind_direction_10m", "relative_humidity_2m", "pressure_msl", "uv_index", "precipitation_probability",
	"rain", "snowfall", "dew_point_2m", "visibility", "wind_gusts_10m",
}

var dailyFields = []string{
	"weather_code", "temperature_2m_max", "temperature_2m_min", "uv_index_max",
	"precipitation_probability_max", "rain_sum", "snowfall_sum",
}

// OpenMeteo fetches forecasts from the free Open-Meteo API. It needs no API key, but does
// not provide air quality; sunrise, sunset and moon phase are computed locally.
type OpenMeteo struct {
	unit     string
	location *time.Location
	log      *logger.Logger
	clock    clockwork.Clock
	client   omgo.Client
}

// series is the subset of an Open-Meteo forecast the provider maps. Times are wall clock
// times in the requested timezone.
type series struct {
	currentTime   time.Time
	currentTemp   float64
	currentCode   float64
	currentWind   float64
	currentWindTo float64
	hourlyTimes   []time.Time
	hourly        map[string][]float64
	dailyTimes    []time.Time
	daily         map[string][]float64
}

func New(log *logger.Logger, clock clockwork.Clock, unit string, location *time.Location) (*OpenMeteo, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if location == nil {
		location = time.Local
	}
	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Open-Meteo client: %w", err)
	}

	return &OpenMeteo{unit: unit, location: location, log: log, clock: clock, client: client}, nil
}

func (o *OpenMeteo) Name() string {
	return name
}

func (o *OpenMeteo) GetWeather(ctx context.Context, coords weather.Coordinates) (*weather.Response, error) {
	ctxFetch, cancelFetch := context.WithTimeout(ctx, FetchTimeout)
	defer cancelFetch()

	location, err := omgo.NewLocation(coords.Lat, coords.Lon)
	if err != nil {
		return nil, weather.NewParseError(0, fmt.Errorf("failed create Open-Meteo location from coordinates: %w", err))
	}

	forecast, err := o.client.Forecast(ctxFetch, location, o.options())
	if err != nil {
		o.log.Warn("failed to get forecast data", logger.Err(err))
		return nil, weather.NewNetworkError(err)
	}

	return o.response(fromForecast(forecast), coords), nil
}

// response maps s and stamps it with the provider clock.
func (o *OpenMeteo) response(s series, coords weather.Coordinates) *weather.Response {
	data := s.toResponse(coords, o.location)
	data.GeneratedAt = o.clock.Now()
	return data
}

func (o *OpenMeteo) options() *omgo.Options {
	timezone := o.location.String()
	if o.location == time.Local {
		timezone = "auto"
	}

	// Rain stays in millimeters so both providers report the same units.
	opts := &omgo.Options{
		Timezone:          timezone,
		PrecipitationUnit: "mm",
		HourlyMetrics:     hourlyFields,
		DailyMetrics:      dailyFields,
	}
	switch o.unit {
	case "metric":
		opts.TemperatureUnit = "celsius"
		opts.WindspeedUnit = "ms"
	case "imperial":
		opts.TemperatureUnit = "fahrenheit"
		opts.WindspeedUnit = "mph"
	}
	return opts
}

func fromForecast(f *omgo.Forecast) series {
	return series{
		currentTime:   f.CurrentWeather.Time.Time,
		currentTemp:   f.CurrentWeather.Temperature,
		currentCode:   f.CurrentWeather.WeatherCode,
		currentWind:   f.CurrentWeather.WindSpeed,
		currentWindTo: f.CurrentWeather.WindDirection,
		hourlyTimes:   f.HourlyTimes,
		hourly:        f.HourlyMetrics,
		dailyTimes:    f.DailyTimes,
		daily:         f.DailyMetrics,
	}
}

func (s series) toResponse(coords weather.Coordinates, loc *time.Location) *weather.Response {
	data := &weather.Response{Coordinates: coords, Timezone: loc.String()}

	now := inZone(s.currentTime, loc)
	rise, set := sunTimes(coords, now)
	current := weather.Current{
		Time:       now,
		Sunrise:    rise,
		Sunset:     set,
		Temp:       s.currentTemp,
		WindSpeed:  s.currentWind,
		WindDeg:    s.currentWindTo,
		Conditions: []weather.Condition{condition(s.currentCode, isDaytime(now, rise, set))},
	}
	if idx := s.hourIndex(now, loc); idx >= 0 {
		current.FeelsLike = s.hourlyValue("apparent_temperature", idx)
		current.Humidity = int(s.hourlyValue("relative_humidity_2m", idx))
		current.Pressure = s.hourlyValue("pressure_msl", idx)
		current.Rain1h = s.hourlyValue("rain", idx)
		current.Snow1h = s.hourlyValue("snowfall", idx) * cmToMM
		current.UVI = s.hourlyVar("uv_index", idx)
		current.DewPoint = s.hourlyVar("dew_point_2m", idx)
		current.WindGust = s.hourlyVar("wind_gusts_10m", idx)
		if vis := s.hourlyVar("visibility", idx); vis.IsSet() {
			current.Visibility = vartype.NewVariable(int(math.Round(vis.Value())))
		}
	}
	data.Current = current

	data.Hourly = make([]weather.Hourly, 0, len(s.hourlyTimes))
	for i, t := range s.hourlyTimes {
		isDay := s.hourlyValue("is_day", i) > 0
		data.Hourly = append(data.Hourly, weather.Hourly{
			Time:       inZone(t, loc),
			Temp:       s.hourlyValue("temperature_2m", i),
			FeelsLike:  s.hourlyValue("apparent_temperature", i),
			WindSpeed:  s.hourlyVar("wind_speed_10m", i),
			WindDeg:    s.hourlyVar("wind_direction_10m", i),
			UVI:        s.hourlyVar("uv_index", i),
			Pop:        s.hourlyValue("precipitation_probability", i) / 100,
			Rain1h:     s.hourlyValue("rain", i),
			Snow1h:     s.hourlyValue("snowfall", i) * cmToMM,
			Conditions: []weather.Condition{condition(s.hourlyValue("weather_code", i), isDay)},
		})
	}

	data.Daily = make([]weather.Daily, 0, len(s.dailyTimes))
	for i, t := range s.dailyTimes {
		day := inZone(t, loc)
		dayRise, daySet := sunTimes(coords, day)
		noon := day.Add(12 * time.Hour)
		data.Daily = append(data.Daily, weather.Daily{
			Time:    day,
			Sunrise: dayRise,
			Sunset:  daySet,
			Temp: weather.DailyTemp{
				Min: s.dailyValue("temperature_2m_min", i),
				Max: s.dailyValue("temperature_2m_max", i),
				Day: s.dailyValue("temperature_2m_max", i),
			},
			UVI:        s.dailyVar("uv_index_max", i),
			MoonPhase:  vartype.NewVariable(moonphase.New(noon).Phase()),
			Pop:        s.dailyValue("precipitation_probability_max", i) / 100,
			Rain:       s.dailyValue("rain_sum", i),
			Snow:       s.dailyValue("snowfall_sum", i) * cmToMM,
			Conditions: []weather.Condition{condition(s.dailyValue("weather_code", i), true)},
		})
	}

	return data
}

func (s series) hourIndex(now time.Time, loc *time.Location) int {
	hour := now.Truncate(time.Hour)
	for i, t := range s.hourlyTimes {
		if inZone(t, loc).Equal(hour) {
			return i
		}
	}
	return -1
}

func (s series) hourlyValue(metric string, idx int) float64 {
	return s.hourlyVar(metric, idx).ValueOr(0)
}

func (s series) hourlyVar(metric string, idx int) vartype.VarFloat64 {
	return lookup(s.hourly, metric, idx)
}

func (s series) dailyValue(metric string, idx int) float64 {
	return s.dailyVar(metric, idx).ValueOr(0)
}

func (s series) dailyVar(metric string, idx int) vartype.VarFloat64 {
	return lookup(s.daily, metric, idx)
}

func lookup(metrics map[string][]float64, metric string, idx int) vartype.VarFloat64 {
	values, ok := metrics[metric]
	if !ok || idx < 0 || idx >= len(values) || math.IsNaN(values[idx]) {
		return vartype.VarFloat64{}
	}
	return vartype.NewVariable(values[idx])
}

// inZone reinterprets the wall clock of t in loc. The API returns local times without an
// offset, which parse as UTC.
func inZone(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func sunTimes(coords weather.Coordinates, day time.Time) (time.Time, time.Time) {
	return sunrise.SunriseSunset(coords.Lat, coords.Lon, day.Year(), day.Month(), day.Day())
}

func isDaytime(now, rise, set time.Time) bool {
	return now.After(rise) && now.Before(set)
}
