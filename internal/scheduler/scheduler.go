// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package scheduler implements the refresh loop: quiet hours, fetch-render-display cycles,
// failure backoff and the battery dependent sleep or power-off decision.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/display"
	"github.com/wneessen/inkweather/internal/logger"
	"github.com/wneessen/inkweather/internal/power"
	"github.com/wneessen/inkweather/internal/system"
	"github.com/wneessen/inkweather/internal/telemetry"
)

const (
	// MaxFailures is the failure streak that triggers the backoff sleep.
	MaxFailures = 3
	// BackoffFactor multiplies the base refresh interval while backing off.
	BackoffFactor = 4
)

// Refresher runs one fetch-render-display cycle.
type Refresher interface {
	Refresh(ctx context.Context, mode display.RefreshMode) error
	Status() system.Status
}

// AwakeChecker reports the remote stay-awake flag.
type AwakeChecker interface {
	Check(ctx context.Context) bool
}

// PowerController schedules the next wake-up and powers the device off.
type PowerController interface {
	ScheduleWakeup(ctx context.Context, wake time.Time) bool
	Shutdown(ctx context.Context)
}

// Reporter receives a report after every cycle.
type Reporter interface {
	Publish(report telemetry.Report)
}

// Options holds the collaborators of a Scheduler. StayAwake and Telemetry are optional.
type Options struct {
	Clock     clockwork.Clock
	Refresher Refresher
	StayAwake AwakeChecker
	Power     PowerController
	Telemetry Reporter
	// Once stops the loop after the first cycle.
	Once bool
}

// Scheduler runs the refresh loop. It is not safe for concurrent use, except for Wake.
type Scheduler struct {
	log          *logger.Logger
	clock        clockwork.Clock
	refresher    Refresher
	stayAwake    AwakeChecker
	power        PowerController
	telemetry    Reporter
	signals      signalSource
	location     *time.Location
	quiet        *power.QuietHours
	policy       power.Policy
	baseMinutes  int
	fullInterval time.Duration
	once         bool

	lastFull time.Time
	streak   int
	wake     chan struct{}
	sleep    func(ctx context.Context, d time.Duration) error
}

// New returns a Scheduler for the given config.
func New(conf *config.Config, log *logger.Logger, opts Options) (*Scheduler, error) {
	if conf == nil {
		return nil, errors.New("config is required")
	}
	if opts.Refresher == nil {
		return nil, errors.New("refresher is required")
	}
	if opts.Power == nil {
		return nil, errors.New("power controller is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	quiet := power.NewQuietHours(conf.QuietWindow())
	sched := &Scheduler{
		log:       log,
		clock:     opts.Clock,
		refresher: opts.Refresher,
		stayAwake: opts.StayAwake,
		power:     opts.Power,
		telemetry: opts.Telemetry,
		signals:   stdLibSignalSource{},
		location:  conf.Location(),
		quiet:     quiet,
		policy: power.Policy{
			PoweroffSOC:   conf.PoweroffThreshold(),
			Quiet:         quiet,
			QuietPoweroff: !conf.StayOnInQuietHours,
		},
		baseMinutes:  conf.RefreshMinutes,
		fullInterval: conf.FullRefreshInterval,
		once:         opts.Once,
		wake:         make(chan struct{}, 1),
	}
	sched.sleep = sched.sleepFor
	return sched, nil
}

// Run loops until the context is cancelled, the single cycle of a once run is done or the
// device has been powered off. Cancellation is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(wakeSignals) > 0 {
		sigChan := make(chan os.Signal, 1)
		s.signals.Notify(sigChan, wakeSignals...)
		sigCtx, stopSignals := context.WithCancel(ctx)
		handlerDone := make(chan struct{})
		go func() {
			defer close(handlerDone)
			s.HandleWakeSignal(sigCtx, sigChan)
		}()
		defer func() {
			s.signals.Stop(sigChan)
			stopSignals()
			<-handlerDone
		}()
	}

	s.lastFull = s.clock.Now()
	for ctx.Err() == nil {
		if s.iterate(ctx) {
			return nil
		}
	}
	return nil
}

// iterate runs one pass of the loop and reports whether the loop is done.
func (s *Scheduler) iterate(ctx context.Context) bool {
	log := s.log.With(slog.String("cycle", uuid.NewString()))
	now := s.clock.Now().In(s.location)

	quiet := false
	if s.stayAwake != nil && s.stayAwake.Check(ctx) {
		log.Debug("stay-awake flag set, bypassing quiet hours")
	} else {
		quiet = s.quiet.IsQuiet(now)
	}
	if quiet {
		secs := s.quiet.SecondsUntilEnd(now)
		until := now.Add(time.Duration(secs) * time.Second)
		log.Info("quiet hours active, sleeping until they end", slog.Int("minutes", secs/60),
			slog.String("until", until.Format("15:04")))
		s.pause(ctx, log, time.Duration(secs)*time.Second)
		return false
	}

	full := now.Sub(s.lastFull) > s.fullInterval
	mode := display.ModeGreyscale
	if full {
		mode = display.ModeFull
	}
	log.Debug("starting refresh cycle", slog.String("mode", mode.String()))
	err := s.refresher.Refresh(ctx, mode)

	status := s.refresher.Status()
	report := telemetry.Report{
		SOC:         status.SOC,
		Charging:    status.Charging,
		OK:          err == nil,
		RefreshedAt: s.clock.Now(),
	}
	if err != nil {
		report.Error = err.Error()
	}

	if err == nil {
		s.streak = 0
		if full {
			s.lastFull = s.clock.Now()
		}
	} else {
		s.streak++
		log.Warn("refresh cycle failed", logger.Err(err), slog.Int("streak", s.streak))
		if s.streak >= MaxFailures {
			backoff := time.Duration(s.baseMinutes*BackoffFactor) * time.Minute
			log.Warn("too many consecutive failures, backing off", slog.Int("failures", s.streak),
				slog.Duration("backoff", backoff))
			s.publish(report)
			s.pause(ctx, log, backoff)
			return false
		}
	}

	if s.once {
		s.publish(report)
		return true
	}

	sleepMinutes := power.RefreshDelay(s.baseMinutes, status.SOC)
	sleep := time.Duration(sleepMinutes) * time.Minute
	if s.policy.ShouldPowerOff(status.SOC, now) {
		wake := s.clock.Now().Add(sleep)
		report.NextWake = &wake
		s.publish(report)
		log.Info("powering off", slog.Int("minutes", sleepMinutes), slog.Int("soc", status.SOC),
			slog.String("wake", wake.Format("15:04")))
		if !s.power.ScheduleWakeup(ctx, wake) {
			log.Warn("no wake-up could be scheduled, the device may need a manual power-on")
		}
		s.power.Shutdown(ctx)
		return true
	}

	s.publish(report)
	log.Info("sleeping until next refresh", slog.Int("soc", status.SOC), slog.Int("minutes", sleepMinutes),
		slog.Float64("factor", float64(sleepMinutes)/float64(s.baseMinutes)))
	s.pause(ctx, log, sleep)
	return false
}

func (s *Scheduler) pause(ctx context.Context, log *logger.Logger, d time.Duration) {
	if err := s.sleep(ctx, d); err != nil {
		log.Debug("sleep interrupted", logger.Err(err))
	}
}

func (s *Scheduler) publish(report telemetry.Report) {
	if s.telemetry != nil {
		s.telemetry.Publish(report)
	}
}

// Wake ends the current in-process sleep early. It never blocks.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// sleepFor blocks for d, until Wake is called or until ctx is done.
func (s *Scheduler) sleepFor(ctx context.Context, d time.Duration) error {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	case <-s.wake:
		s.log.Info("woken up early, refreshing now")
		return nil
	}
}
