// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openmeteo

import (
	"github.com/wneessen/inkweather/internal/weather"
)

type owmCondition struct {
	id          int
	main        string
	description string
	icon        string
}

// wmoConditions maps WMO weather interpretation codes onto OpenWeather condition ids and
// icon codes (without the day/night suffix).
var wmoConditions = map[int]owmCondition{
	0:  {800, "Clear", "clear sky", "01"},
	1:  {801, "Clouds", "few clouds", "02"},
	2:  {802, "Clouds", "scattered clouds", "03"},
	3:  {804, "Clouds", "overcast clouds", "04"},
	45: {741, "Fog", "fog", "50"},
	48: {741, "Fog", "depositing rime fog", "50"},
	51: {300, "Drizzle", "light intensity drizzle", "09"},
	53: {301, "Drizzle", "drizzle", "09"},
	55: {302, "Drizzle", "heavy intensity drizzle", "09"},
	56: {511, "Rain", "light freezing drizzle", "13"},
	57: {511, "Rain", "dense freezing drizzle", "13"},
	61: {500, "Rain", "light rain", "10"},
	63: {501, "Rain", "moderate rain", "10"},
	65: {502, "Rain", "heavy intensity rain", "10"},
	66: {511, "Rain", "light freezing rain", "13"},
	67: {511, "Rain", "heavy freezing rain", "13"},
	71: {600, "Snow", "light snow", "13"},
	73: {601, "Snow", "snow", "13"},
	75: {602, "Snow", "heavy snow", "13"},
	77: {600, "Snow", "snow grains", "13"},
	80: {520, "Rain", "light intensity shower rain", "09"},
	81: {521, "Rain", "shower rain", "09"},
	82: {522, "Rain", "heavy intensity shower rain", "09"},
	85: {620, "Snow", "light shower snow", "13"},
	86: {622, "Snow", "heavy shower snow", "13"},
	95: {211, "Thunderstorm", "thunderstorm", "11"},
	96: {201, "Thunderstorm", "thunderstorm with slight hail", "11"},
	99: {202, "Thunderstorm", "thunderstorm with heavy hail", "11"},
}

func condition(code float64, isDay bool) weather.Condition {
	c, ok := wmoConditions[int(code)]
	if !ok {
		return weather.Condition{ID: 0, Main: "Unknown", Description: "unknown"}
	}
	suffix := "n"
	if isDay {
		suffix = "d"
	}
	return weather.Condition{ID: c.id, Main: c.main, Description: c.description, Icon: c.icon + suffix}
}
