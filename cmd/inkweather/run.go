// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/display"
	"github.com/wneessen/inkweather/internal/http"
	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/pijuice"
	"github.com/wneessen/inkweather/internal/power"
	"github.com/wneessen/inkweather/internal/remote"
	"github.com/wneessen/inkweather/internal/render"
	"github.com/wneessen/inkweather/internal/scheduler"
	"github.com/wneessen/inkweather/internal/service"
	"github.com/wneessen/inkweather/internal/system"
	"github.com/wneessen/inkweather/internal/telemetry"
)

type runOptions struct {
	configFile   string
	preview      bool
	serve        bool
	once         bool
	debug        bool
	stayAwakeURL string
}

func runCmd() *cobra.Command {
	opts := new(runOptions)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the weather display loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "path to the config file")
	flags.BoolVarP(&opts.preview, "preview", "p", false, "write the dashboard to the preview directory only")
	flags.BoolVarP(&opts.serve, "serve", "s", false,
		"with --preview and --once, serve the preview directory over HTTP (Ctrl-C to stop)")
	flags.BoolVarP(&opts.once, "once", "1", false, "run one cycle then exit")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.stayAwakeURL, "stay-awake-url", "",
		"override the URL that returns {\"awake\": true|false}")
	return cmd
}

func run(ctx context.Context, opts *runOptions, out io.Writer) error {
	conf, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := conf.LogLevel
	if opts.debug {
		level = slog.LevelDebug
	}
	log := logger.New(level)
	clock := clockwork.NewRealClock()

	var battery system.Battery
	wakeups := make([]power.WakeupProvider, 0, 2)
	juice, err := pijuice.Open(conf.Battery.I2CBus, conf.Battery.Address)
	if err != nil {
		log.Debug("PiJuice not available, using battery defaults", logger.Err(err))
	} else {
		defer func() {
			if err := juice.Close(); err != nil {
				log.Warn("failed to close I2C bus", logger.Err(err))
			}
		}()
		battery = juice
		wakeups = append(wakeups, juice)
		if synced, err := juice.SyncRTC(clock.Now()); err != nil {
			log.Warn("failed to sync PiJuice RTC", logger.Err(err))
		} else if synced {
			log.Info("PiJuice RTC set from system clock")
		}
	}
	wakeups = append(wakeups, power.RTCWakeup{Path: conf.Battery.RTCWakealarm})

	var wifi system.WiFiSource
	if nl, err := system.NewNL80211(); err != nil {
		log.Debug("WiFi status not available", logger.Err(err))
	} else {
		defer func() { _ = nl.Close() }()
		wifi = nl
	}
	monitor := system.NewMonitor(log, clock, battery, wifi)

	var driver display.Driver
	if opts.preview {
		driver = display.NewSimulator(log, conf.DisplayWidth, conf.DisplayHeight, conf.VCOMVolts)
	} else if driver, err = display.New(log, conf); err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}

	serv, err := service.New(conf, log, driver, monitor, clock, opts.preview)
	if err != nil {
		return fmt.Errorf("failed to initialize inkweather service: %w", err)
	}

	publisher := telemetry.New(log, conf)
	defer publisher.Close()

	manager := power.NewManager(log, wakeups,
		[]power.Shutdowner{power.NewLogindShutdown(), power.CommandShutdown{}})
	stayAwake := remote.NewStayAwake(http.New(log), log, conf.ResolveStayAwakeURL(opts.stayAwakeURL))

	sched, err := scheduler.New(conf, log, scheduler.Options{
		Clock:     clock,
		Refresher: serv,
		StayAwake: stayAwake,
		Power:     manager,
		Telemetry: publisher,
		Once:      opts.once,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	log.Info("starting inkweather", slog.String("version", version), slog.String("commit", commit),
		slog.String("date", date), slog.String("provider", serv.Provider().Name()),
		slog.String("display", driver.Name()))
	if err = sched.Run(ctx); err != nil {
		return err
	}

	if opts.serve && opts.preview && opts.once {
		url := "http://localhost" + render.DefaultServeAddr + "/" + render.PreviewHTML
		_, _ = fmt.Fprintf(out, "Serving preview on %s - press Ctrl-C to quit\n", url)
		if err = render.OpenBrowser(runtime.GOOS, url); err != nil {
			log.Debug("could not open browser", logger.Err(err))
		}
		return render.Serve(ctx, log, render.DefaultServeAddr, serv.Output().Dir)
	}

	log.Info("shutting down inkweather")
	return nil
}
