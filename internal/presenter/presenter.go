// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/i18n"
	"github.com/wneessen/inkweather/internal/system"
	"github.com/wneessen/inkweather/internal/timefmt"
	"github.com/wneessen/inkweather/internal/weather"
)

// CurrentView wraps the current conditions with presentation fields.
type CurrentView struct {
	weather.Current

	Description string
	Icon        string
	Pressure    string
	WindSpeed   float64
}

// HourlyView wraps an hourly forecast entry with presentation fields.
type HourlyView struct {
	weather.Hourly

	LocalTime     string
	Icon          string
	Precipitation string
}

// DailyView wraps a daily forecast entry with presentation fields.
type DailyView struct {
	weather.Daily

	Weekday     string
	Icon        string
	Description string
	Sunrise     string
	Sunset      string
	MoonIcon    string
}

// DashboardContext holds every value the dashboard template displays.
type DashboardContext struct {
	Date                 string
	City                 string
	LastRefresh          string
	LastRefreshLocalized string

	UnitsTemp     string
	UnitsWind     string
	UnitsPrecip   string
	UnitsPressure string

	Current  CurrentView
	Sunrise  string
	Sunset   string
	Daylight string

	UVIMax      string
	UVITime     string
	UVIOccurred bool

	AQI       string
	MoonPhase float64
	MoonIcon  string
	MoonLabel string

	Beaufort     int
	WindCardinal string
	ArrowDeg     int

	Hourly []HourlyView
	Daily  []DailyView

	Status   system.Status
	Width    int
	Height   int
	IconsDir string
}

// Presenter turns weather responses into dashboard contexts.
type Presenter struct {
	conf      *config.Config
	icons     *IconMap
	clock     clockwork.Clock
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	caser     cases.Caser
	lang      language.Tag
}

func New(conf *config.Config, loc *spreak.Localizer, icons *IconMap, clock clockwork.Clock) (*Presenter, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}
	if loc == nil {
		return nil, fmt.Errorf("localizer is required")
	}
	if icons == nil {
		return nil, fmt.Errorf("icon map is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	lang := i18n.Resolve(conf.Locale)
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}

	return &Presenter{
		conf:      conf,
		icons:     icons,
		clock:     clock,
		localizer: loc,
		humanizer: collection.CreateHumanizer(lang),
		caser:     cases.Title(lang),
		lang:      lang,
	}, nil
}

// BuildContext derives all display values from a weather response and a status snapshot.
func (p *Presenter) BuildContext(data *weather.Response, status system.Status) DashboardContext {
	loc := p.conf.Location()
	now := p.clock.Now().In(loc)
	imperial := !p.conf.IsMetric()

	ctx := DashboardContext{
		Date:                 p.fullDate(now),
		City:                 p.conf.City,
		LastRefresh:          timefmt.Format(now, p.conf.TimeFormatGeneral+" %Z"),
		LastRefreshLocalized: p.humanizer.FormatTime(now, humanize.TimeFormat),
		UnitsTemp:            "°C",
		UnitsWind:            "m/s",
		UnitsPrecip:          "mm",
		UnitsPressure:        "hPa",
		AQI:                  data.AirQuality.Label(),
		Status:               status,
		Width:                p.conf.DisplayWidth,
		Height:               p.conf.DisplayHeight,
		IconsDir:             p.conf.IconsDir,
	}
	if imperial {
		ctx.UnitsTemp, ctx.UnitsWind, ctx.UnitsPrecip, ctx.UnitsPressure = "°F", "mph", "in", "inHg"
	}

	cur := data.Current
	ctx.Current = CurrentView{
		Current:     cur,
		Description: p.caser.String(cur.Condition().Description),
		Icon:        p.icons.Lookup(cur.Condition()),
		Pressure:    fmt.Sprintf("%.0f", cur.Pressure),
		WindSpeed:   cur.WindSpeed,
	}
	if imperial {
		ctx.Current.Pressure = fmt.Sprintf("%.2f", HPaToInHg(cur.Pressure))
	}

	ctx.Sunrise = timefmt.Format(cur.Sunrise.In(loc), p.conf.TimeFormatGeneral)
	ctx.Sunset = timefmt.Format(cur.Sunset.In(loc), p.conf.TimeFormatGeneral)
	ctx.Daylight = Daylight(int64(cur.Daylight().Seconds()))

	uvi, uviTime := maxUVI(data, now, loc)
	ctx.UVIMax = fmt.Sprintf("%.1f", uvi)
	ctx.UVITime = timefmt.Format(uviTime.In(loc), p.conf.TimeFormatGeneral)
	ctx.UVIOccurred = !uviTime.After(now)

	if len(data.Daily) > 0 {
		ctx.MoonPhase = data.Daily[0].MoonPhase.ValueOr(0)
	}
	ctx.MoonIcon = MoonIcon(ctx.MoonPhase)
	ctx.MoonLabel = p.Label(MoonLabel(ctx.MoonPhase))

	mph := cur.WindSpeed
	if !imperial {
		mph *= MPSToMPH
	}
	ctx.Beaufort = Beaufort(mph)
	ctx.WindCardinal = Cardinal(cur.WindDeg)
	ctx.ArrowDeg = ArrowDeg(cur.WindDeg)

	ctx.Hourly = p.hourly(data.Hourly, now, loc, imperial)
	ctx.Daily = p.daily(data.Daily, now, loc)

	return ctx
}

// Label returns the localized form of a dashboard label. Unknown labels are returned as is.
func (p *Presenter) Label(key string) string {
	if raw, ok := i18nVars[key]; ok {
		return p.localizer.Get(raw)
	}
	return key
}

// Icon returns the icon file name for a condition.
func (p *Presenter) Icon(c weather.Condition) string {
	return p.icons.Lookup(c)
}

func (p *Presenter) fullDate(now time.Time) string {
	base, _ := p.lang.Base()
	english, _ := language.English.Base()
	if base != english {
		return p.humanizer.FormatTime(now, humanize.DateFormat)
	}
	return timefmt.Format(now, p.conf.TimeFormatFullDate)
}

func (p *Presenter) hourly(entries []weather.Hourly, now time.Time, loc *time.Location, imperial bool) []HourlyView {
	views := make([]HourlyView, 0, p.conf.HourlyCount)
	for _, h := range entries {
		if len(views) == p.conf.HourlyCount {
			break
		}
		if !h.Time.After(now) {
			continue
		}
		views = append(views, HourlyView{
			Hourly:        h,
			LocalTime:     timefmt.Format(h.Time.In(loc), p.conf.TimeFormatHourly),
			Icon:          p.icons.Lookup(h.Condition()),
			Precipitation: Precipitation(h.Precipitation(), imperial),
		})
	}
	return views
}

func (p *Presenter) daily(entries []weather.Daily, now time.Time, loc *time.Location) []DailyView {
	today := dateOf(now, loc)
	views := make([]DailyView, 0, p.conf.DailyCount)
	for _, d := range entries {
		if len(views) == p.conf.DailyCount {
			break
		}
		if !dateOf(d.Time, loc).After(today) {
			continue
		}
		views = append(views, DailyView{
			Daily:       d,
			Weekday:     timefmt.Format(d.Time.In(loc), p.conf.TimeFormatDaily),
			Icon:        p.icons.Lookup(d.Condition()),
			Description: p.caser.String(d.Condition().Description),
			Sunrise:     timefmt.Format(d.Sunrise.In(loc), p.conf.TimeFormatGeneral),
			Sunset:      timefmt.Format(d.Sunset.In(loc), p.conf.TimeFormatGeneral),
			MoonIcon:    MoonIcon(d.MoonPhase.ValueOr(0)),
		})
	}
	return views
}

// maxUVI returns the peak UV index of today, considering the current observation and all
// hourly entries on today's date. The first occurrence of the peak wins.
func maxUVI(data *weather.Response, now time.Time, loc *time.Location) (float64, time.Time) {
	today := dateOf(now, loc)
	peak, peakTime := data.Current.UVI.ValueOr(0), data.Current.Time
	if peakTime.IsZero() {
		peakTime = now
	}
	for _, h := range data.Hourly {
		if !dateOf(h.Time, loc).Equal(today) {
			continue
		}
		if uvi := h.UVI.ValueOr(0); uvi > peak {
			peak, peakTime = uvi, h.Time
		}
	}
	return peak, peakTime
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
