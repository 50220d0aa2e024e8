// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package power

import "time"

// RefreshDelay scales the base refresh interval (in minutes) by the battery state of charge.
// The lower the charge, the longer the display sleeps between updates. The 1.5 factor is
// truncated to an integer.
func RefreshDelay(baseMinutes, soc int) int {
	switch {
	case soc <= 5:
		return baseMinutes * 4
	case soc <= 15:
		return baseMinutes * 3
	case soc <= 25:
		return baseMinutes * 2
	case soc <= 50:
		return baseMinutes * 3 / 2
	default:
		return baseMinutes
	}
}

// QuietHours is a daily window of whole hours. If Start is smaller than End the window is
// [Start, End) on the same day, otherwise it wraps around midnight.
type QuietHours struct {
	Start int
	End   int
}

// NewQuietHours returns a quiet-hours window or nil if ok is false, so callers can pass the
// result of config.QuietWindow directly.
func NewQuietHours(start, end int, ok bool) *QuietHours {
	if !ok {
		return nil
	}
	return &QuietHours{Start: start, End: end}
}

// IsQuiet reports whether t falls inside the window. A nil window is never quiet.
func (q *QuietHours) IsQuiet(t time.Time) bool {
	if q == nil {
		return false
	}
	hour := t.Hour()
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

// SecondsUntilEnd returns the seconds from t until the window ends, or 0 if t is not inside
// the window.
func (q *QuietHours) SecondsUntilEnd(t time.Time) int {
	if !q.IsQuiet(t) {
		return 0
	}
	end := time.Date(t.Year(), t.Month(), t.Day(), q.End, 0, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return int(end.Sub(t).Seconds())
}

// Policy decides when the device should power off instead of sleeping in-process.
type Policy struct {
	PoweroffSOC int
	Quiet       *QuietHours
	// QuietPoweroff makes active quiet hours a reason to power off.
	QuietPoweroff bool
}

// ShouldPowerOff reports whether the device should shut down at now with the given charge.
func (p Policy) ShouldPowerOff(soc int, now time.Time) bool {
	if soc <= p.PoweroffSOC {
		return true
	}
	return p.QuietPoweroff && p.Quiet.IsQuiet(now)
}
