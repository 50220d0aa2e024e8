// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build windows

package scheduler

import "os"

var wakeSignals []os.Signal
