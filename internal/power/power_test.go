// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package power

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/inkweather/internal/logger"
)

type fakeWakeup struct {
	name  string
	err   error
	calls int
	wake  time.Time
}

func (f *fakeWakeup) Name() string { return f.name }

func (f *fakeWakeup) SetWakeup(_ context.Context, wake time.Time) error {
	f.calls++
	f.wake = wake
	return f.err
}

type fakeShutdown struct {
	err   error
	calls int
}

func (f *fakeShutdown) Name() string { return "fake" }

func (f *fakeShutdown) Shutdown(context.Context) error {
	f.calls++
	return f.err
}

func TestManager_ScheduleWakeup(t *testing.T) {
	wake := time.Date(2025, time.June, 14, 6, 0, 0, 0, time.UTC)
	t.Run("first successful provider wins", func(t *testing.T) {
		first := &fakeWakeup{name: "pijuice"}
		second := &fakeWakeup{name: "rtc"}
		m := NewManager(logger.Discard(), []WakeupProvider{first, second}, nil)

		if !m.ScheduleWakeup(t.Context(), wake) {
			t.Fatal("expected wake-up to be scheduled")
		}
		if first.calls != 1 || second.calls != 0 {
			t.Errorf("expected only the first provider to be called, got %d/%d", first.calls, second.calls)
		}
		if !first.wake.Equal(wake) {
			t.Errorf("expected wake time %s, got %s", wake, first.wake)
		}
	})
	t.Run("failing providers fall through", func(t *testing.T) {
		first := &fakeWakeup{name: "pijuice", err: errors.New("no hat")}
		second := &fakeWakeup{name: "rtc"}
		m := NewManager(logger.Discard(), []WakeupProvider{first, second}, nil)

		if !m.ScheduleWakeup(t.Context(), wake) {
			t.Fatal("expected wake-up to be scheduled")
		}
		if second.calls != 1 {
			t.Errorf("expected fallback provider to be called once, got %d", second.calls)
		}
	})
	t.Run("all providers failing returns false and warns", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		m := NewManager(logger.NewLogger(slog.LevelWarn, buf), []WakeupProvider{
			&fakeWakeup{name: "a", err: errors.New("fail")},
			&fakeWakeup{name: "b", err: errors.New("fail")},
		}, nil)

		if m.ScheduleWakeup(t.Context(), wake) {
			t.Fatal("expected wake-up scheduling to fail")
		}
		if !strings.Contains(buf.String(), "all wake-up methods failed") {
			t.Errorf("expected warning to be logged, got %q", buf.String())
		}
	})
}

func TestManager_Shutdown(t *testing.T) {
	t.Run("stops after the first successful method", func(t *testing.T) {
		first := &fakeShutdown{}
		second := &fakeShutdown{}
		NewManager(logger.Discard(), nil, []Shutdowner{first, second}).Shutdown(t.Context())
		if first.calls != 1 || second.calls != 0 {
			t.Errorf("expected only the first method to be called, got %d/%d", first.calls, second.calls)
		}
	})
	t.Run("failures are logged and swallowed", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		first := &fakeShutdown{err: errors.New("access denied")}
		second := &fakeShutdown{err: exec.ErrNotFound}
		NewManager(logger.NewLogger(slog.LevelWarn, buf), nil, []Shutdowner{first, second}).Shutdown(t.Context())
		if first.calls != 1 || second.calls != 1 {
			t.Errorf("expected both methods to be tried, got %d/%d", first.calls, second.calls)
		}
		if !strings.Contains(buf.String(), "shutdown command not found") {
			t.Errorf("expected not found warning, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "access denied") {
			t.Errorf("expected failure warning, got %q", buf.String())
		}
	})
}

func TestRTCWakeup_SetWakeup(t *testing.T) {
	t.Run("wake time is written as epoch seconds", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wakealarm")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatalf("failed to create wakealarm file: %s", err)
		}
		wake := time.Date(2025, time.June, 14, 6, 0, 0, 0, time.UTC)

		if err := (RTCWakeup{Path: path}).SetWakeup(t.Context(), wake); err != nil {
			t.Fatalf("failed to set wakeup: %s", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read wakealarm file: %s", err)
		}
		if want := strconv.FormatInt(wake.Unix(), 10); string(data) != want {
			t.Errorf("expected wakealarm to be %s, got %s", want, data)
		}
	})
	t.Run("missing wakealarm file fails", func(t *testing.T) {
		err := RTCWakeup{Path: filepath.Join(t.TempDir(), "missing")}.SetWakeup(t.Context(), time.Now())
		if err == nil {
			t.Fatal("expected set wakeup to fail")
		}
	})
}

func TestCommandShutdown_Shutdown(t *testing.T) {
	t.Run("missing command reports not found", func(t *testing.T) {
		err := CommandShutdown{Command: []string{"inkweather-no-such-shutdown-binary"}}.Shutdown(t.Context())
		if !errors.Is(err, exec.ErrNotFound) {
			t.Errorf("expected error to be %s, got %v", exec.ErrNotFound, err)
		}
	})
	t.Run("failing command returns its output", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Skip("sh not available")
		}
		err := CommandShutdown{Command: []string{"sh", "-c", "echo denied; exit 1"}}.Shutdown(t.Context())
		if err == nil {
			t.Fatal("expected shutdown to fail")
		}
		if !strings.Contains(err.Error(), "denied") {
			t.Errorf("expected error to contain command output, got %s", err)
		}
	})
}

type fakeBusObject struct {
	method string
	args   []any
	err    error
}

func (f *fakeBusObject) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func TestLogindShutdown_Shutdown(t *testing.T) {
	t.Run("power off is requested non-interactively", func(t *testing.T) {
		obj := &fakeBusObject{}
		closed := false
		l := &LogindShutdown{connect: func() (busObject, func() error, error) {
			return obj, func() error { closed = true; return nil }, nil
		}}
		if err := l.Shutdown(t.Context()); err != nil {
			t.Fatalf("failed to shut down: %s", err)
		}
		if obj.method != logindPowerOff {
			t.Errorf("expected method %s, got %s", logindPowerOff, obj.method)
		}
		if len(obj.args) != 1 || obj.args[0] != false {
			t.Errorf("expected a single false argument, got %v", obj.args)
		}
		if !closed {
			t.Error("expected bus connection to be closed")
		}
	})
	t.Run("bus errors are returned", func(t *testing.T) {
		l := &LogindShutdown{connect: func() (busObject, func() error, error) {
			return nil, nil, errors.New("no system bus")
		}}
		if err := l.Shutdown(t.Context()); err == nil {
			t.Fatal("expected shutdown to fail")
		}
	})
	t.Run("call errors are returned", func(t *testing.T) {
		obj := &fakeBusObject{err: errors.New("interactive authentication required")}
		l := &LogindShutdown{connect: func() (busObject, func() error, error) {
			return obj, func() error { return nil }, nil
		}}
		if err := l.Shutdown(t.Context()); err == nil {
			t.Fatal("expected shutdown to fail")
		}
	})
}
