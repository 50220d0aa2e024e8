// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"regexp"
)

var envRefPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Interpolate replaces every ${VAR_NAME} in raw with the value of the environment variable.
// Unset variables expand to an empty string.
func Interpolate(raw []byte) []byte {
	return envRefPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envRefPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}
