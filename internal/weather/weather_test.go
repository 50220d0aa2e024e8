// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCondition_IsDay(t *testing.T) {
	if !(Condition{Icon: "01d"}).IsDay() {
		t.Error("expected 01d to be a daytime icon")
	}
	if (Condition{Icon: "01n"}).IsDay() {
		t.Error("expected 01n to be a nighttime icon")
	}
}

func TestCurrent_Condition(t *testing.T) {
	t.Run("first condition is the primary one", func(t *testing.T) {
		current := Current{Conditions: []Condition{{ID: 500}, {ID: 701}}}
		if current.Condition().ID != 500 {
			t.Errorf("expected condition id to be: 500, got %d", current.Condition().ID)
		}
	})
	t.Run("no conditions returns the zero value", func(t *testing.T) {
		if (Current{}).Condition() != (Condition{}) {
			t.Error("expected zero condition")
		}
	})
}

func TestCurrent_Daylight(t *testing.T) {
	sunrise := time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)
	current := Current{Sunrise: sunrise, Sunset: sunrise.Add(15*time.Hour + 12*time.Minute)}
	if current.Daylight() != 15*time.Hour+12*time.Minute {
		t.Errorf("expected daylight to be: 15h12m, got %s", current.Daylight())
	}
	current.Sunset = sunrise.Add(-time.Hour)
	if current.Daylight() != 0 {
		t.Errorf("expected daylight to be zero for inverted times, got %s", current.Daylight())
	}
}

func TestHourly_Precipitation(t *testing.T) {
	tests := []struct {
		name string
		hour Hourly
		want float64
	}{
		{"rain only", Hourly{Rain1h: 0.4}, 0.4},
		{"snow only", Hourly{Snow1h: 1.2}, 1.2},
		{"rain wins over snow", Hourly{Rain1h: 0.3, Snow1h: 2}, 0.3},
		{"no precipitation", Hourly{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.hour.Precipitation(); got != tc.want {
				t.Errorf("expected precipitation to be: %f, got %f", tc.want, got)
			}
		})
	}
}

func TestAirQuality_Label(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "N/A"}, {1, "Good"}, {2, "Fair"}, {3, "Moderate"}, {4, "Poor"}, {5, "Very Poor"}, {6, "N/A"}, {-1, "N/A"},
	}
	for _, tc := range tests {
		if got := (AirQuality{Index: tc.index}).Label(); got != tc.want {
			t.Errorf("index %d: expected label to be: %s, got %s", tc.index, tc.want, got)
		}
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"message field wins", 401, `{"cod":401,"message":"Invalid API key. Please see faq."}`, "Invalid API key. Please see faq."},
		{"table is used without message field", 401, `{"cod":401}`, "Invalid or missing API key"},
		{"table is used for non-JSON body", 429, `too many`, "Rate limit exceeded"},
		{"raw body for unknown code", 418, ` I'm a teapot `, "I'm a teapot"},
		{"non-string message falls back to table", 503, `{"message": 5}`, "Service unavailable (maintenance)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusMessage(tc.code, []byte(tc.body)); got != tc.want {
				t.Errorf("expected message to be: %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	t.Run("classification", func(t *testing.T) {
		tests := []struct {
			name string
			err  *APIError
			want Class
		}{
			{"4xx is a client error", NewStatusError(404, nil), ClassClient},
			{"5xx is a server error", NewStatusError(502, nil), ClassServer},
			{"network error", NewNetworkError(errors.New("dial tcp: refused")), ClassNetwork},
			{"parse error", NewParseError(200, errors.New("unexpected EOF")), ClassParse},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				if tc.err.Class() != tc.want {
					t.Errorf("expected class to be: %s, got %s", tc.want, tc.err.Class())
				}
			})
		}
	})
	t.Run("network errors carry code 0", func(t *testing.T) {
		if err := NewNetworkError(errors.New("timeout")); err.Code != 0 {
			t.Errorf("expected code to be: 0, got %d", err.Code)
		}
	})
	t.Run("helpers", func(t *testing.T) {
		if !NewStatusError(401, nil).IsAuth() || !NewStatusError(403, nil).IsAuth() {
			t.Error("expected 401 and 403 to be auth errors")
		}
		if !NewStatusError(429, nil).IsRateLimit() {
			t.Error("expected 429 to be a rate limit error")
		}
		if !NewStatusError(404, nil).IsNotFound() {
			t.Error("expected 404 to be a not found error")
		}
	})
	t.Run("error string", func(t *testing.T) {
		if got := NewStatusError(500, nil).Error(); got != "[500] OpenWeather internal error" {
			t.Errorf("unexpected error string: %s", got)
		}
	})
	t.Run("wrapped errors are found", func(t *testing.T) {
		inner := errors.New("connection reset")
		err := fmt.Errorf("fetch failed: %w", NewNetworkError(inner))
		if !errors.Is(err, inner) {
			t.Error("expected wrapped error to unwrap to the cause")
		}
		if apiErr := AsAPIError(err); apiErr.Class() != ClassNetwork {
			t.Errorf("expected network class, got %s", apiErr.Class())
		}
	})
	t.Run("plain errors become network errors", func(t *testing.T) {
		if apiErr := AsAPIError(errors.New("boom")); apiErr.Code != 0 || apiErr.Class() != ClassNetwork {
			t.Errorf("unexpected API error: %+v", apiErr)
		}
	})
}
