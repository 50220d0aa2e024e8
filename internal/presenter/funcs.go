// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/vorlif/humanize"

	"github.com/wneessen/inkweather/internal/timefmt"
)

// FuncMap returns the helper functions available to dashboard templates.
func (p *Presenter) FuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"floatFormat":   floatFormat,
		"round":         roundInt,
		"loc":           p.Label,
		"cardinal":      Cardinal,
		"arrowDeg":      ArrowDeg,
		"moonIcon":      MoonIcon,
		"moonLabel":     func(phase float64) string { return p.Label(MoonLabel(phase)) },
		"percent":       percent,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) timeFormat(val time.Time, format string) string {
	return timefmt.Format(val.In(p.conf.Location()), format)
}

func floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}

func roundInt(val float64) int {
	return int(math.Round(val))
}

func percent(val float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(val*100)))
}
