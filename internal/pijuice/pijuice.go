// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package pijuice talks to a PiJuice battery HAT over I2C. It reads the battery state and
// programs the HAT's real-time clock alarm that powers the Raspberry Pi back on.
package pijuice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// DefaultBus and DefaultAddress are the factory settings of the HAT.
	DefaultBus     = "1"
	DefaultAddress = 0x14

	regStatus         = 0x40
	regChargeLevel    = 0x41
	regBatteryVoltage = 0x49
	regRTCTime        = 0xB0
	regRTCAlarm       = 0xB9
	regRTCCtrlStatus  = 0xC2

	// minRTCYear is the year below which the RTC is considered unset.
	minRTCYear = 2024
)

var (
	ErrChecksum = errors.New("pijuice: checksum mismatch")
	hostInit    sync.Once
	hostErr     error
)

// BatteryState is the battery part of the status register.
type BatteryState int

const (
	BatteryNormal BatteryState = iota
	BatteryChargingFromIn
	BatteryChargingFrom5VIO
	BatteryNotPresent
)

func (b BatteryState) String() string {
	switch b {
	case BatteryNormal:
		return "NORMAL"
	case BatteryChargingFromIn:
		return "CHARGING_FROM_IN"
	case BatteryChargingFrom5VIO:
		return "CHARGING_FROM_5V_IO"
	case BatteryNotPresent:
		return "NOT_PRESENT"
	default:
		return "UNKNOWN"
	}
}

// Status is the decoded status register.
type Status struct {
	Fault   bool
	Button  bool
	Battery BatteryState
}

// Charging reports whether the battery is being charged from any input.
func (s Status) Charging() bool {
	return s.Battery == BatteryChargingFromIn || s.Battery == BatteryChargingFrom5VIO
}

// PiJuice is a PiJuice HAT on an I2C bus.
type PiJuice struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// New returns a PiJuice on an already opened bus.
func New(bus i2c.Bus, addr uint16) *PiJuice {
	return &PiJuice{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// Open initializes the host drivers and opens the named I2C bus.
func Open(busName string, addr uint16) (*PiJuice, error) {
	hostInit.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", hostErr)
	}
	if busName == "" {
		busName = DefaultBus
	}
	if addr == 0 {
		addr = DefaultAddress
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	p := New(bus, addr)
	p.bus = bus
	return p, nil
}

// Close releases the I2C bus if it was opened by Open.
func (p *PiJuice) Close() error {
	if p.bus != nil {
		return p.bus.Close()
	}
	return nil
}

func (p *PiJuice) Name() string {
	return "pijuice"
}

// ChargeLevel returns the battery state of charge in percent.
func (p *PiJuice) ChargeLevel() (int, error) {
	data, err := p.read(regChargeLevel, 1)
	if err != nil {
		return 0, err
	}
	return int(data[0]), nil
}

// Status returns the decoded status register.
func (p *PiJuice) Status() (Status, error) {
	data, err := p.read(regStatus, 1)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Fault:   data[0]&0x01 != 0,
		Button:  data[0]&0x02 != 0,
		Battery: BatteryState((data[0] >> 2) & 0x03),
	}, nil
}

// Voltage returns the battery voltage in volts.
func (p *PiJuice) Voltage() (float64, error) {
	data, err := p.read(regBatteryVoltage, 2)
	if err != nil {
		return 0, err
	}
	mv := int(data[1])<<8 | int(data[0])
	return float64(mv) / 1000, nil
}

// RTCTime reads the real-time clock. The RTC runs in UTC.
func (p *PiJuice) RTCTime() (time.Time, error) {
	data, err := p.read(regRTCTime, 9)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(2000+fromBCD(data[6]), time.Month(fromBCD(data[5])), fromBCD(data[4]),
		fromBCD(data[2]&0x3F), fromBCD(data[1]), fromBCD(data[0]&0x7F), 0, time.UTC), nil
}

// SetRTCTime writes t (converted to UTC) to the real-time clock.
func (p *PiJuice) SetRTCTime(t time.Time) error {
	t = t.UTC()
	data := []byte{
		toBCD(t.Second()),
		toBCD(t.Minute()),
		toBCD(t.Hour()),
		byte(t.Weekday()) + 1,
		toBCD(t.Day()),
		toBCD(int(t.Month())),
		toBCD(t.Year() - 2000),
		0, // subseconds
		0, // daylight saving flags
	}
	return p.write(regRTCTime, data)
}

// SyncRTC sets the RTC from now if it has never been set. It returns whether it wrote the
// clock.
func (p *PiJuice) SyncRTC(now time.Time) (bool, error) {
	rtc, err := p.RTCTime()
	if err != nil {
		return false, err
	}
	if rtc.Year() >= minRTCYear {
		return false, nil
	}
	return true, p.SetRTCTime(now)
}

// SetWakeup programs the RTC alarm for wake and enables wake-up on alarm.
func (p *PiJuice) SetWakeup(_ context.Context, wake time.Time) error {
	wake = wake.UTC()
	alarm := []byte{
		toBCD(wake.Second()),
		toBCD(wake.Minute()),
		toBCD(wake.Hour()),
		0, // hour period mask
		toBCD(wake.Day()),
		0, // weekday mask
		0, 0, 0,
	}
	if err := p.write(regRTCAlarm, alarm); err != nil {
		return fmt.Errorf("failed to set RTC alarm: %w", err)
	}

	ctrl, err := p.read(regRTCCtrlStatus, 2)
	if err != nil {
		return fmt.Errorf("failed to read RTC control: %w", err)
	}
	// bit 0 enables the alarm, bit 2 enables wake-up; the second byte holds the alarm flag
	ctrl[0] |= 0x05
	ctrl[1] &^= 0x01
	if err = p.write(regRTCCtrlStatus, ctrl); err != nil {
		return fmt.Errorf("failed to enable wake-up: %w", err)
	}
	return nil
}

// read reads length data bytes plus a trailing checksum from register cmd.
func (p *PiJuice) read(cmd byte, length int) ([]byte, error) {
	buf := make([]byte, length+1)
	if err := p.dev.Tx([]byte{cmd}, buf); err != nil {
		return nil, fmt.Errorf("failed to read register 0x%02X: %w", cmd, err)
	}
	data := buf[:length]
	if checksum(data) != buf[length] {
		return nil, fmt.Errorf("register 0x%02X: %w", cmd, ErrChecksum)
	}
	return data, nil
}

func (p *PiJuice) write(cmd byte, data []byte) error {
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, cmd)
	frame = append(frame, data...)
	frame = append(frame, checksum(data))
	if err := p.dev.Tx(frame, nil); err != nil {
		return fmt.Errorf("failed to write register 0x%02X: %w", cmd, err)
	}
	return nil
}

func checksum(data []byte) byte {
	fcs := byte(0xFF)
	for _, b := range data {
		fcs ^= b
	}
	return fcs
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
