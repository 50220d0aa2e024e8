// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package system captures a snapshot of the device state (battery, WiFi) once per refresh
// cycle.
package system

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/pijuice"
	"github.com/wneessen/inkweather/internal/vartype"
)

const (
	// DefaultSOC is reported when no battery controller is present.
	DefaultSOC = 100

	criticalSOC = 10
	lowSOC      = 25
)

// Battery is a battery controller such as the PiJuice HAT.
type Battery interface {
	ChargeLevel() (int, error)
	Status() (pijuice.Status, error)
	Voltage() (float64, error)
}

// Status is a snapshot of the device state.
type Status struct {
	SOC            int
	Charging       bool
	BatteryWarning bool
	Voltage        vartype.VarFloat64
	WiFi           *WiFi
	LastUpdate     time.Time
}

// Critical reports a critically low battery.
func (s Status) Critical() bool {
	return s.SOC <= criticalSOC
}

// Low reports a low, but not yet critical battery.
func (s Status) Low() bool {
	return s.SOC > criticalSOC && s.SOC <= lowSOC
}

// FormattedSOC returns the charge as a percentage string.
func (s Status) FormattedSOC() string {
	return fmt.Sprintf("%d%%", s.SOC)
}

// Monitor reads the device state. A nil battery or WiFi source is treated as absent.
type Monitor struct {
	battery Battery
	wifi    WiFiSource
	clock   clockwork.Clock
	log     *logger.Logger
}

// NewMonitor returns a Monitor. battery and wifi may be nil.
func NewMonitor(log *logger.Logger, clock clockwork.Clock, battery Battery, wifi WiFiSource) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{battery: battery, wifi: wifi, clock: clock, log: log}
}

// Snapshot returns the current device state. Read errors are logged and replaced by
// defaults; a snapshot is always returned.
func (m *Monitor) Snapshot() Status {
	status := Status{SOC: DefaultSOC, LastUpdate: m.clock.Now()}

	if m.battery != nil {
		m.readBattery(&status)
	}
	if m.wifi != nil {
		wifi, err := m.wifi.Current()
		if err != nil {
			m.log.Debug("WiFi status unavailable", logger.Err(err))
		} else {
			status.WiFi = wifi
		}
	}

	return status
}

func (m *Monitor) readBattery(status *Status) {
	soc, err := m.battery.ChargeLevel()
	if err != nil {
		m.log.Warn("could not get battery charge level", logger.Err(err))
		return
	}
	status.SOC = min(max(soc, 0), 100)

	state, err := m.battery.Status()
	if err != nil {
		m.log.Warn("could not get battery status", logger.Err(err))
	} else {
		status.Charging = state.Charging()
		status.BatteryWarning = state.Fault || state.Battery == pijuice.BatteryNotPresent
	}
	if !status.Charging && status.SOC <= lowSOC {
		status.BatteryWarning = true
	}

	volts, err := m.battery.Voltage()
	if err != nil {
		m.log.Debug("could not get battery voltage", logger.Err(err))
	} else {
		status.Voltage = vartype.NewVariable(volts)
	}

	m.log.Debug("battery status", slog.Int("soc", status.SOC), slog.Bool("charging", status.Charging),
		slog.String("voltage", status.Voltage.String()))
}
