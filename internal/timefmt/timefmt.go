// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package timefmt formats times with strftime-style format strings as they are used in the
// configuration file (e.g. "%-I:%M %p" or "%A, %B %-d").
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

var ErrUnknownDirective = errors.New("unknown format directive")

// supported lists the conversion specifiers accepted in config formats. Each of them may carry
// the "-" flag to suppress padding.
const supported = "aAbBhdeHIjmMSpyYZz%"

// Validate reports whether every directive in format is supported.
func Validate(format string) error {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i == len(format)-1 {
			continue
		}
		i++
		if format[i] == '-' && i < len(format)-1 {
			i++
		}
		if !strings.ContainsRune(supported, rune(format[i])) {
			return fmt.Errorf("%w: %%%c", ErrUnknownDirective, format[i])
		}
	}
	return nil
}

// Format renders t according to the strftime-style format. Use Validate to reject unknown
// directives up front.
func Format(t time.Time, format string) string {
	return strftime.Format(format, t)
}
