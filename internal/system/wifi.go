// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package system

import (
	"errors"
	"fmt"

	"github.com/mdlayher/wifi"
)

var ErrNoWiFi = errors.New("no associated WiFi station interface")

// WiFi describes the network the device is associated with.
type WiFi struct {
	Interface string
	SSID      string
	// Signal is the signal strength in dBm.
	Signal int
}

// Bars maps the signal strength to 0-4 bars for the status line.
func (w *WiFi) Bars() int {
	switch {
	case w == nil:
		return 0
	case w.Signal >= -55:
		return 4
	case w.Signal >= -67:
		return 3
	case w.Signal >= -75:
		return 2
	case w.Signal >= -85:
		return 1
	default:
		return 0
	}
}

// WiFiSource reports the current WiFi association.
type WiFiSource interface {
	Current() (*WiFi, error)
}

// NL80211 reads WiFi state from the kernel via nl80211.
type NL80211 struct {
	client *wifi.Client
}

// NewNL80211 opens an nl80211 client.
func NewNL80211() (*NL80211, error) {
	client, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WiFi client: %w", err)
	}
	return &NL80211{client: client}, nil
}

// Close closes the nl80211 client.
func (n *NL80211) Close() error {
	return n.client.Close()
}

// Current returns the first station interface that is associated with an access point.
func (n *NL80211) Current() (*WiFi, error) {
	ifaces, err := n.client.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		bss, err := n.client.BSS(iface)
		if err != nil {
			continue
		}
		current := &WiFi{Interface: iface.Name, SSID: bss.SSID}
		if stations, err := n.client.StationInfo(iface); err == nil && len(stations) > 0 {
			current.Signal = stations[0].Signal
		}
		return current, nil
	}
	return nil, ErrNoWiFi
}
