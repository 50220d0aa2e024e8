// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/wneessen/inkweather/internal/weather"
)

const (
	// UnknownIcon is used for conditions without a mapping.
	UnknownIcon = "wi-na.svg"

	colID   = "API response: id"
	colIcon = "API response: icon"
	colFile = "Weather Icons Filename"
)

//go:embed data/owm_icon_map.csv
var iconCSV []byte

var ErrMissingColumn = errors.New("icon map is missing a required column")

// IconMap maps OpenWeather conditions to Weather Icons file names. It is immutable once
// loaded.
type IconMap struct {
	icons map[string]string
}

var defaultIcons = sync.OnceValues(func() (*IconMap, error) {
	return LoadIconMap(bytes.NewReader(iconCSV))
})

// DefaultIconMap returns the icon map compiled into the binary.
func DefaultIconMap() (*IconMap, error) {
	return defaultIcons()
}

// LoadIconMap reads a CSV with the columns "API response: id", "API response: icon" and
// "Weather Icons Filename".
func LoadIconMap(r io.Reader) (*IconMap, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read icon map header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{colID, colIcon, colFile} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	icons := make(map[string]string)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read icon map: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[cols[colID]]))
		if err != nil {
			return nil, fmt.Errorf("invalid condition id %q: %w", record[cols[colID]], err)
		}
		icons[iconKey(id, strings.TrimSpace(record[cols[colIcon]]))] = strings.TrimSpace(record[cols[colFile]])
	}
	return &IconMap{icons: icons}, nil
}

// Lookup returns the icon file name for a condition, or UnknownIcon.
func (m *IconMap) Lookup(c weather.Condition) string {
	if m == nil {
		return UnknownIcon
	}
	if icon, ok := m.icons[iconKey(c.ID, c.Icon)]; ok {
		return icon
	}
	return UnknownIcon
}

// Len returns the number of mapped conditions.
func (m *IconMap) Len() int {
	return len(m.icons)
}

// iconKey returns the lookup key. Clear and cloudy conditions (800-804) have separate day
// and night icons, keyed by the last character of the icon code.
func iconKey(id int, icon string) string {
	key := strconv.Itoa(id)
	if id >= 800 && id <= 804 && icon != "" {
		key += icon[len(icon)-1:]
	}
	return key
}
