// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "github.com/vorlif/spreak/localize"

// i18nVars holds the translatable dashboard labels, keyed by the name templates use.
var i18nVars = map[string]localize.MsgID{
	"feels_like":      "Feels like",
	"humidity":        "Humidity",
	"pressure":        "Pressure",
	"wind":            "Wind",
	"visibility":      "Visibility",
	"uv_index":        "UV index",
	"uv_peak":         "UV peak",
	"uv_peaked":       "UV peaked",
	"air_quality":     "Air quality",
	"sunrise":         "Sunrise",
	"sunset":          "Sunset",
	"daylight":        "Daylight",
	"moon":            "Moon",
	"updated":         "Updated",
	"battery":         "Battery",
	"charging":        "Charging",
	"low_battery":     "Low battery",
	"beaufort":        "Beaufort",
	"Good":            "Good",
	"Fair":            "Fair",
	"Moderate":        "Moderate",
	"Poor":            "Poor",
	"Very Poor":       "Very poor",
	"New Moon":        "New moon",
	"Waxing Crescent": "Waxing crescent",
	"First Quarter":   "First quarter",
	"Waxing Gibbous":  "Waxing gibbous",
	"Full Moon":       "Full moon",
	"Waning Gibbous":  "Waning gibbous",
	"Last Quarter":    "Last quarter",
	"Waning Crescent": "Waning crescent",
}
