// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build !windows

package scheduler

import (
	"os"
	"syscall"
)

// wakeSignals end the current sleep and trigger an immediate refresh.
var wakeSignals = []os.Signal{syscall.SIGUSR1}
