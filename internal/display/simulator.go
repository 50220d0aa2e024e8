// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wneessen/inkweather/internal/logger"
)

// Simulator only logs what it would display.
type Simulator struct {
	log    *logger.Logger
	width  int
	height int
	vcom   float64

	mu       sync.Mutex
	lastPath string
	lastMode RefreshMode
	shown    int
	cleared  int
}

func NewSimulator(log *logger.Logger, width, height int, vcom float64) *Simulator {
	return &Simulator{log: log, width: width, height: height, vcom: vcom}
}

func (s *Simulator) Name() string {
	return DriverSimulate
}

func (s *Simulator) DisplayImage(_ context.Context, path string, mode RefreshMode) error {
	s.mu.Lock()
	s.lastPath, s.lastMode = path, mode
	s.shown++
	s.mu.Unlock()

	s.log.Info("[SIM] would display image", slog.String("path", path), slog.String("mode", mode.String()),
		slog.Float64("vcom", s.vcom), slog.Int("width", s.width), slog.Int("height", s.height))
	return nil
}

func (s *Simulator) Clear(context.Context) error {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()

	s.log.Info("[SIM] would clear display")
	return nil
}

// Last returns the path and mode of the last displayed image.
func (s *Simulator) Last() (string, RefreshMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath, s.lastMode
}

// Count returns how often an image was displayed and how often the panel was cleared.
func (s *Simulator) Count() (shown, cleared int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown, s.cleared
}
