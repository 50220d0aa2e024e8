// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/wneessen/inkweather/internal/logger"
)

// DefaultRTCWakealarm is the sysfs wake alarm of the first RTC.
const DefaultRTCWakealarm = "/sys/class/rtc/rtc0/wakealarm"

// WakeupProvider programs a hardware alarm that powers the device back on.
type WakeupProvider interface {
	Name() string
	SetWakeup(ctx context.Context, wake time.Time) error
}

// Shutdowner powers off the operating system.
type Shutdowner interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// Manager schedules wake-ups and shuts the system down. Wake-up providers and shutdown
// methods are tried in order until one succeeds.
type Manager struct {
	log        *logger.Logger
	wakeups    []WakeupProvider
	shutdowner []Shutdowner
}

// NewManager returns a Manager using the given wake-up providers and shutdown methods.
func NewManager(log *logger.Logger, wakeups []WakeupProvider, shutdowner []Shutdowner) *Manager {
	return &Manager{log: log, wakeups: wakeups, shutdowner: shutdowner}
}

// ScheduleWakeup tries every provider in order and returns true on the first success.
func (m *Manager) ScheduleWakeup(ctx context.Context, wake time.Time) bool {
	for _, provider := range m.wakeups {
		if err := provider.SetWakeup(ctx, wake); err != nil {
			m.log.Debug("wake-up provider failed", slog.String("provider", provider.Name()),
				logger.Err(err))
			continue
		}
		m.log.Info("wake-up scheduled", slog.String("provider", provider.Name()),
			slog.Time("wake", wake))
		return true
	}
	m.log.Warn("all wake-up methods failed, the device may need a manual power on",
		slog.Time("wake", wake))
	return false
}

// Shutdown powers off the system. Failures are logged and never returned, since a missing
// shutdown path is expected on development machines.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, method := range m.shutdowner {
		err := method.Shutdown(ctx)
		if err == nil {
			m.log.Info("system shutdown initiated", slog.String("method", method.Name()))
			return
		}
		if errors.Is(err, exec.ErrNotFound) {
			m.log.Warn("shutdown command not found", slog.String("method", method.Name()))
			continue
		}
		m.log.Warn("shutdown failed", slog.String("method", method.Name()), logger.Err(err))
	}
}

// RTCWakeup writes the wake-up time to a Linux RTC wakealarm file.
type RTCWakeup struct {
	Path string
}

func (r RTCWakeup) Name() string {
	return "rtc-wakealarm"
}

// SetWakeup clears a pending alarm and programs the new one as seconds since the epoch.
func (r RTCWakeup) SetWakeup(_ context.Context, wake time.Time) error {
	path := r.Path
	if path == "" {
		path = DefaultRTCWakealarm
	}
	if err := writeSysfs(path, "0"); err != nil {
		return fmt.Errorf("failed to clear RTC wakealarm: %w", err)
	}
	if err := writeSysfs(path, strconv.FormatInt(wake.Unix(), 10)); err != nil {
		return fmt.Errorf("failed to set RTC wakealarm: %w", err)
	}
	return nil
}

func writeSysfs(path, value string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err = file.WriteString(value); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// CommandShutdown runs an external command, "sudo shutdown -h now" by default.
type CommandShutdown struct {
	Command []string
}

func (c CommandShutdown) Name() string {
	return "command"
}

func (c CommandShutdown) Shutdown(ctx context.Context) error {
	command := c.Command
	if len(command) == 0 {
		command = []string{"sudo", "shutdown", "-h", "now"}
	}
	output, err := exec.CommandContext(ctx, command[0], command[1:]...).CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%w: %s", err, output)
		}
		return err
	}
	return nil
}
