// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "fmt"

// moonIcons divides the lunar cycle into 28 steps.
var moonIcons = []string{
	"new",
	"waxing-crescent-1", "waxing-crescent-2", "waxing-crescent-3",
	"waxing-crescent-4", "waxing-crescent-5", "waxing-crescent-6",
	"first-quarter",
	"waxing-gibbous-1", "waxing-gibbous-2", "waxing-gibbous-3",
	"waxing-gibbous-4", "waxing-gibbous-5", "waxing-gibbous-6",
	"full",
	"waning-gibbous-1", "waning-gibbous-2", "waning-gibbous-3",
	"waning-gibbous-4", "waning-gibbous-5", "waning-gibbous-6",
	"third-quarter",
	"waning-crescent-1", "waning-crescent-2", "waning-crescent-3",
	"waning-crescent-4", "waning-crescent-5", "waning-crescent-6",
}

// MoonIcon returns the icon file name for a moon phase fraction (0-1).
func MoonIcon(phase float64) string {
	idx := min(int(phase*float64(len(moonIcons))), len(moonIcons)-1)
	idx = max(idx, 0)
	return fmt.Sprintf("wi-moon-alt-%s.svg", moonIcons[idx])
}

// MoonLabel returns the English name of a moon phase fraction (0-1).
func MoonLabel(phase float64) string {
	switch {
	case phase < 0.03 || phase > 0.97:
		return "New Moon"
	case phase < 0.22:
		return "Waxing Crescent"
	case phase < 0.28:
		return "First Quarter"
	case phase < 0.47:
		return "Waxing Gibbous"
	case phase < 0.53:
		return "Full Moon"
	case phase < 0.72:
		return "Waning Gibbous"
	case phase < 0.78:
		return "Last Quarter"
	default:
		return "Waning Crescent"
	}
}
