// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	ihttp "github.com/wneessen/inkweather/internal/http"
	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/vartype"
	"github.com/wneessen/inkweather/internal/weather"
)

const (
	name           = "openweathermap"
	apiEndpoint    = "https://api.openweathermap.org/data/3.0/onecall"
	aqiEndpoint    = "https://api.openweathermap.org/data/2.5/air_pollution"
	apiTimeout     = time.Second * 10
	breakerTimeout = time.Hour * 6
	breakerTrips   = 3
)

var ErrNoAirQuality = errors.New("air quality response contains no data")

// OpenWeatherMap fetches the One Call 3.0 API and the air pollution API.
type OpenWeatherMap struct {
	apiKey string
	units  string
	log    *logger.Logger
	http   *ihttp.Client
	clock  clockwork.Clock

	endpoint    string
	aqiEndpoint string
	aqiBreaker  *gobreaker.CircuitBreaker[weather.AirQuality]
}

type condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type oneHour struct {
	OneHour float64 `json:"1h"`
}

type response struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
	Current  struct {
		Dt         int64       `json:"dt"`
		Sunrise    int64       `json:"sunrise"`
		Sunset     int64       `json:"sunset"`
		Temp       float64     `json:"temp"`
		FeelsLike  float64     `json:"feels_like"`
		Pressure   float64     `json:"pressure"`
		Humidity   int         `json:"humidity"`
		DewPoint   *float64    `json:"dew_point"`
		UVI        *float64    `json:"uvi"`
		Visibility *int        `json:"visibility"`
		WindSpeed  float64     `json:"wind_speed"`
		WindDeg    float64     `json:"wind_deg"`
		WindGust   *float64    `json:"wind_gust"`
		Rain       *oneHour    `json:"rain"`
		Snow       *oneHour    `json:"snow"`
		Weather    []condition `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt        int64       `json:"dt"`
		Temp      float64     `json:"temp"`
		FeelsLike float64     `json:"feels_like"`
		WindSpeed *float64    `json:"wind_speed"`
		WindDeg   *float64    `json:"wind_deg"`
		UVI       *float64    `json:"uvi"`
		Pop       float64     `json:"pop"`
		Rain      *oneHour    `json:"rain"`
		Snow      *oneHour    `json:"snow"`
		Weather   []condition `json:"weather"`
	} `json:"hourly"`
	Daily []struct {
		Dt      int64 `json:"dt"`
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
		Temp    struct {
			Day   float64 `json:"day"`
			Night float64 `json:"night"`
			Eve   float64 `json:"eve"`
			Morn  float64 `json:"morn"`
			Min   float64 `json:"min"`
			Max   float64 `json:"max"`
		} `json:"temp"`
		UVI       *float64    `json:"uvi"`
		MoonPhase *float64    `json:"moon_phase"`
		Pop       float64     `json:"pop"`
		Rain      float64     `json:"rain"`
		Snow      float64     `json:"snow"`
		Summary   string      `json:"summary"`
		Weather   []condition `json:"weather"`
	} `json:"daily"`
}

type aqiResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
	} `json:"list"`
}

func New(http *ihttp.Client, log *logger.Logger, clock clockwork.Clock, apiKey, units string) (*OpenWeatherMap, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	breaker := gobreaker.NewCircuitBreaker[weather.AirQuality](gobreaker.Settings{
		Name:        "air-quality",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Debug("circuit breaker state changed", slog.String("breaker", name),
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})

	return &OpenWeatherMap{
		apiKey: apiKey, units: units, log: log, http: http, clock: clock,
		endpoint: apiEndpoint, aqiEndpoint: aqiEndpoint, aqiBreaker: breaker,
	}, nil
}

func (o *OpenWeatherMap) Name() string {
	return name
}

// GetWeather fetches current, hourly and daily data. Air quality is fetched afterwards and
// never fails the call.
func (o *OpenWeatherMap) GetWeather(ctx context.Context, coords weather.Coordinates) (*weather.Response, error) {
	query := o.coordQuery(coords)
	query.Set("units", o.units)
	query.Set("exclude", "minutely,alerts")

	res, err := o.http.GetRaw(ctx, o.endpoint, query, nil, apiTimeout)
	if err != nil {
		o.log.Warn("weather API network error", logger.Err(err))
		return nil, weather.NewNetworkError(err)
	}
	if res.StatusCode != http.StatusOK {
		apiErr := weather.NewStatusError(res.StatusCode, res.Body)
		o.log.Error("weather API error", slog.Int("code", apiErr.Code), slog.String("message", apiErr.Message))
		return nil, apiErr
	}

	payload := new(response)
	if err = json.Unmarshal(res.Body, payload); err != nil {
		return nil, weather.NewParseError(res.StatusCode, err)
	}

	data := payload.toResponse()
	data.Coordinates = coords
	data.GeneratedAt = o.clock.Now()

	aq, err := o.aqiBreaker.Execute(func() (weather.AirQuality, error) {
		return o.airQuality(ctx, coords)
	})
	if err != nil {
		o.log.Info("could not fetch air quality", logger.Err(err))
	}
	data.AirQuality = aq

	return data, nil
}

func (o *OpenWeatherMap) airQuality(ctx context.Context, coords weather.Coordinates) (weather.AirQuality, error) {
	payload := new(aqiResponse)
	code, err := o.http.GetWithTimeout(ctx, o.aqiEndpoint, payload, o.coordQuery(coords), nil, apiTimeout)
	if code != 0 && code != http.StatusOK {
		return weather.AirQuality{}, fmt.Errorf("air quality API returned non-positive response code: %d", code)
	}
	if err != nil {
		return weather.AirQuality{}, fmt.Errorf("air quality request failed: %w", err)
	}
	if len(payload.List) == 0 {
		return weather.AirQuality{}, ErrNoAirQuality
	}
	aq := weather.AirQuality{Index: payload.List[0].Main.AQI, Components: payload.List[0].Components}
	if !aq.Available() {
		return weather.AirQuality{}, fmt.Errorf("air quality index out of range: %d", aq.Index)
	}
	return aq, nil
}

func (o *OpenWeatherMap) coordQuery(coords weather.Coordinates) url.Values {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	query.Set("appid", o.apiKey)
	return query
}

func (r *response) toResponse() *weather.Response {
	data := &weather.Response{Timezone: r.Timezone}

	cur := r.Current
	data.Current = weather.Current{
		Time:       unix(cur.Dt),
		Sunrise:    unix(cur.Sunrise),
		Sunset:     unix(cur.Sunset),
		Temp:       cur.Temp,
		FeelsLike:  cur.FeelsLike,
		Pressure:   cur.Pressure,
		Humidity:   cur.Humidity,
		DewPoint:   vartype.FromPointer(cur.DewPoint),
		UVI:        vartype.FromPointer(cur.UVI),
		Visibility: vartype.FromPointer(cur.Visibility),
		WindSpeed:  cur.WindSpeed,
		WindDeg:    cur.WindDeg,
		WindGust:   vartype.FromPointer(cur.WindGust),
		Rain1h:     amount(cur.Rain),
		Snow1h:     amount(cur.Snow),
		Conditions: conditions(cur.Weather),
	}

	data.Hourly = make([]weather.Hourly, 0, len(r.Hourly))
	for _, h := range r.Hourly {
		data.Hourly = append(data.Hourly, weather.Hourly{
			Time:       unix(h.Dt),
			Temp:       h.Temp,
			FeelsLike:  h.FeelsLike,
			WindSpeed:  vartype.FromPointer(h.WindSpeed),
			WindDeg:    vartype.FromPointer(h.WindDeg),
			UVI:        vartype.FromPointer(h.UVI),
			Pop:        h.Pop,
			Rain1h:     amount(h.Rain),
			Snow1h:     amount(h.Snow),
			Conditions: conditions(h.Weather),
		})
	}

	data.Daily = make([]weather.Daily, 0, len(r.Daily))
	for _, d := range r.Daily {
		data.Daily = append(data.Daily, weather.Daily{
			Time:    unix(d.Dt),
			Sunrise: unix(d.Sunrise),
			Sunset:  unix(d.Sunset),
			Temp: weather.DailyTemp{
				Day: d.Temp.Day, Night: d.Temp.Night, Eve: d.Temp.Eve,
				Morn: d.Temp.Morn, Min: d.Temp.Min, Max: d.Temp.Max,
			},
			UVI:        vartype.FromPointer(d.UVI),
			MoonPhase:  vartype.FromPointer(d.MoonPhase),
			Pop:        d.Pop,
			Rain:       d.Rain,
			Snow:       d.Snow,
			Summary:    d.Summary,
			Conditions: conditions(d.Weather),
		})
	}

	return data
}

func conditions(in []condition) []weather.Condition {
	out := make([]weather.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, weather.Condition{ID: c.ID, Main: c.Main, Description: c.Description, Icon: c.Icon})
	}
	return out
}

func amount(v *oneHour) float64 {
	if v == nil {
		return 0
	}
	return v.OneHour
}

func unix(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
