// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package display drives the e-paper panel. A Simulator stands in when the panel is not
// available.
package display

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/logger"
)

// RefreshMode selects the panel waveform. The values are the IT8951 display modes.
type RefreshMode int

const (
	// ModeFull flashes the whole panel and clears ghosting.
	ModeFull RefreshMode = 0
	// ModeGreyscale is the faster 16 level update used for regular refreshes.
	ModeGreyscale RefreshMode = 2
)

func (m RefreshMode) String() string {
	switch m {
	case ModeFull:
		return "FULL"
	case ModeGreyscale:
		return "GREYSCALE"
	default:
		return fmt.Sprintf("RefreshMode(%d)", int(m))
	}
}

// Driver shows images on a panel.
type Driver interface {
	Name() string
	DisplayImage(ctx context.Context, path string, mode RefreshMode) error
	Clear(ctx context.Context) error
}

const (
	DriverAuto     = "auto"
	DriverIT8951   = "it8951"
	DriverSimulate = "simulate"
)

// New returns the driver selected in the config. With "auto" the IT8951 is tried first and
// the simulator is used when the panel cannot be opened.
func New(log *logger.Logger, conf *config.Config) (Driver, error) {
	sim := NewSimulator(log, conf.DisplayWidth, conf.DisplayHeight, conf.VCOMVolts)
	opts := Options{
		SPIPort:  conf.Display.SPIPort,
		HRDYPin:  conf.Display.HRDYPin,
		ResetPin: conf.Display.ResetPin,
		Width:    conf.DisplayWidth,
		Height:   conf.DisplayHeight,
		VCOM:     conf.VCOMVolts,
	}

	switch conf.Display.Driver {
	case DriverSimulate:
		return sim, nil
	case DriverIT8951:
		return OpenIT8951(log, opts)
	default:
		panel, err := OpenIT8951(log, opts)
		if err != nil {
			log.Warn("e-paper panel not available, running in simulation mode", logger.Err(err))
			return sim, nil
		}
		log.Debug("using IT8951 e-paper panel", slog.Int("width", panel.width),
			slog.Int("height", panel.height))
		return panel, nil
	}
}
