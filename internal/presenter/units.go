// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
)

const (
	// MPSToMPH converts meters per second to miles per hour.
	MPSToMPH = 2.23694

	mmPerInch  = 25.4
	hPaToInHg  = 0.02953
	compassDeg = 22.5
)

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// beaufortLimits are the upper bounds (exclusive, mph) of Beaufort forces 0 to 11.
var beaufortLimits = []float64{1, 4, 7, 12, 18, 24, 31, 38, 46, 54, 63, 73}

// Beaufort converts a wind speed in mph to the Beaufort scale (0-12).
func Beaufort(mph float64) int {
	for force, limit := range beaufortLimits {
		if mph < limit {
			return force
		}
	}
	return len(beaufortLimits)
}

// Cardinal converts a wind bearing to one of 16 compass points.
func Cardinal(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return compassPoints[int(deg/compassDeg+0.5)%len(compassPoints)]
}

// ArrowDeg rounds a wind bearing to the nearest 10 degrees for the direction arrow.
func ArrowDeg(deg float64) int {
	rounded := int(math.RoundToEven(deg/10) * 10)
	return ((rounded % 360) + 360) % 360
}

// MMToInches converts millimeters to inches, rounded to 2 decimals.
func MMToInches(mm float64) float64 {
	return round2(mm / mmPerInch)
}

// HPaToInHg converts hectopascal to inches of mercury, rounded to 2 decimals.
func HPaToInHg(hpa float64) float64 {
	return round2(hpa * hPaToInHg)
}

// Precipitation formats an hourly precipitation amount given in millimeters. Zero amounts
// give an empty string so the template can hide them.
func Precipitation(mm float64, imperial bool) string {
	if imperial {
		mm = MMToInches(mm)
	}
	if mm <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", mm)
}

// Daylight formats a duration as "Xh Ym".
func Daylight(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
