// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package power

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest     = "org.freedesktop.login1"
	logindPath     = "/org/freedesktop/login1"
	logindPowerOff = "org.freedesktop.login1.Manager.PowerOff"
)

// busObject is the part of a dbus.BusObject that is used here.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// LogindShutdown asks systemd-logind via the system bus to power off.
type LogindShutdown struct {
	connect func() (busObject, func() error, error)
}

// NewLogindShutdown returns a Shutdowner talking to logind on the system D-Bus.
func NewLogindShutdown() *LogindShutdown {
	return &LogindShutdown{connect: connectLogind}
}

func connectLogind() (busObject, func() error, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, nil, err
	}
	return conn.Object(logindDest, logindPath), conn.Close, nil
}

func (l *LogindShutdown) Name() string {
	return "logind"
}

func (l *LogindShutdown) Shutdown(ctx context.Context) error {
	obj, closer, err := l.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() { _ = closer() }()

	// The boolean argument disables the interactive polkit prompt.
	if call := obj.CallWithContext(ctx, logindPowerOff, 0, false); call.Err != nil {
		return fmt.Errorf("failed to call %s: %w", logindPowerOff, call.Err)
	}
	return nil
}
