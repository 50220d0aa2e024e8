// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jonboulle/clockwork"
	"github.com/vorlif/spreak"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/display"
	"github.com/wneessen/inkweather/internal/i18n"
	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/presenter"
	"github.com/wneessen/inkweather/internal/render"
	"github.com/wneessen/inkweather/internal/system"
	"github.com/wneessen/inkweather/internal/weather"
)

const (
	errorTitle   = "Weather Update Failed"
	errorAttempt = "Last attempt"
	errorRetry   = "The system will automatically retry later."
)

// StatusSource provides the device status shown on the dashboard.
type StatusSource interface {
	Snapshot() system.Status
}

// Service runs one fetch-render-display cycle at a time.
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	clock      clockwork.Clock
	localizer  *spreak.Localizer
	provider   weather.Provider
	presenter  *presenter.Presenter
	templates  *render.Templates
	rasterizer render.Rasterizer
	display    display.Driver
	status     StatusSource
	output     render.Output
	preview    bool

	goos        string
	openBrowser func(goos, path string) error
}

// New returns a Service for the given config. In preview mode the dashboard is written to the
// preview directory but never sent to the display.
func New(conf *config.Config, log *logger.Logger, driver display.Driver, status StatusSource,
	clock clockwork.Clock, preview bool,
) (*Service, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	if driver == nil {
		return nil, errors.New("display driver is required")
	}
	if status == nil {
		return nil, errors.New("status source is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	localizer, err := i18n.New(conf.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}
	icons, err := presenter.DefaultIconMap()
	if err != nil {
		return nil, fmt.Errorf("failed to load icon map: %w", err)
	}
	pres, err := presenter.New(conf, localizer, icons, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}
	tpls, err := render.New(pres.FuncMap())
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	service := &Service{
		config:      conf,
		logger:      log,
		clock:       clock,
		localizer:   localizer,
		presenter:   pres,
		templates:   tpls,
		rasterizer:  render.NewWkhtml(),
		display:     driver,
		status:      status,
		output:      render.Output{Dir: conf.PreviewDir},
		preview:     preview,
		goos:        runtime.GOOS,
		openBrowser: render.OpenBrowser,
	}

	provider, err := service.selectWeatherProvider()
	if err != nil {
		return nil, err
	}
	service.provider = provider

	return service, nil
}

// Output returns the location of the preview files.
func (s *Service) Output() render.Output {
	return s.output
}

// Provider returns the configured weather provider.
func (s *Service) Provider() weather.Provider {
	return s.provider
}

// Status returns a fresh status snapshot.
func (s *Service) Status() system.Status {
	return s.status.Snapshot()
}

// Refresh fetches the weather, renders the dashboard and shows it using the given refresh
// mode. A failed fetch puts the error screen on the display and is returned to the caller.
// Display failures are logged only.
func (s *Service) Refresh(ctx context.Context, mode display.RefreshMode) error {
	status := s.status.Snapshot()

	data, err := s.fetchWeather(ctx)
	if err != nil {
		apiErr := weather.AsAPIError(err)
		s.logger.Error("failed to fetch weather data", logger.Err(err),
			slog.Int("code", apiErr.Code), slog.String("class", apiErr.Class().String()))
		if !s.preview {
			s.showError(ctx, ErrorMessage(err), status)
		}
		return err
	}

	html, err := s.templates.DashboardHTML(s.presenter.BuildContext(data, status))
	if err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	if err = s.output.WriteHTML(html); err != nil {
		return fmt.Errorf("failed to write dashboard HTML: %w", err)
	}
	s.logger.Debug("dashboard written", slog.String("path", s.output.HTMLPath()))

	if s.preview && s.goos != "linux" {
		if err = s.openBrowser(s.goos, s.output.HTMLPath()); err != nil {
			s.logger.Warn("failed to open browser", logger.Err(err))
		}
		return nil
	}

	if err = s.rasterizer.Rasterize(ctx, s.output.HTMLPath(), s.output.PNGPath(), s.config.DisplayWidth,
		s.config.DisplayHeight); err != nil {
		return fmt.Errorf("failed to rasterize dashboard: %w", err)
	}
	if s.preview {
		s.logger.Info("preview written", slog.String("png", s.output.PNGPath()))
		return nil
	}

	if err = s.display.DisplayImage(ctx, s.output.PNGPath(), mode); err != nil {
		s.logger.Error("failed to update display", logger.Err(err), slog.String("mode", mode.String()))
	}
	return nil
}

// ErrorMessage formats a fetch error for the error screen.
func ErrorMessage(err error) string {
	apiErr := weather.AsAPIError(err)
	return fmt.Sprintf("API Error (%d): %s", apiErr.Code, apiErr.Message)
}

// showError renders the error screen and shows it in greyscale mode. When the rasterizer is
// unavailable a plain text image is drawn instead.
func (s *Service) showError(ctx context.Context, message string, status system.Status) {
	errCtx := render.ErrorContext{
		Title:     s.localizer.Get(errorTitle),
		Message:   message,
		Attempt:   s.localizer.Get(errorAttempt),
		Retry:     s.localizer.Get(errorRetry),
		Status:    status,
		Timestamp: s.clock.Now().In(s.config.Location()),
		Width:     s.config.DisplayWidth,
		Height:    s.config.DisplayHeight,
	}

	dir, err := os.MkdirTemp("", "inkweather-error-*")
	if err != nil {
		s.logger.Error("failed to create temporary directory for error screen", logger.Err(err))
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove temporary directory", logger.Err(err))
		}
	}()
	htmlPath := filepath.Join(dir, "error.html")
	pngPath := filepath.Join(dir, "error.png")

	html, err := s.templates.ErrorHTML(errCtx)
	if err == nil {
		err = os.WriteFile(htmlPath, html, 0o644)
	}
	if err == nil {
		err = s.rasterizer.Rasterize(ctx, htmlPath, pngPath, errCtx.Width, errCtx.Height)
	}
	if err != nil {
		s.logger.Warn("failed to render error screen, using text fallback", logger.Err(err))
		if err = render.WriteFallbackPNG(pngPath, errCtx.Width, errCtx.Height, errorLines(errCtx)); err != nil {
			s.logger.Error("failed to draw fallback error screen", logger.Err(err))
			return
		}
	}

	if err = s.display.DisplayImage(ctx, pngPath, display.ModeGreyscale); err != nil {
		s.logger.Error("failed to show error screen", logger.Err(err))
	}
}

func errorLines(errCtx render.ErrorContext) []string {
	battery := fmt.Sprintf("Battery: %s", errCtx.Status.FormattedSOC())
	if errCtx.Status.Charging {
		battery += " (charging)"
	}
	return []string{
		battery,
		"",
		errCtx.Title,
		errCtx.Message,
		"",
		errCtx.Attempt + ": " + errCtx.LastAttempt(),
		errCtx.Retry,
	}
}
