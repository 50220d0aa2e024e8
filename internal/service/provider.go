// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/http"
	"github.com/wneessen/inkweather/internal/weather"
	openmeteo "github.com/wneessen/inkweather/internal/weather/provider/open-meteo"
	"github.com/wneessen/inkweather/internal/weather/provider/openweathermap"
)

func (s *Service) selectWeatherProvider() (provider weather.Provider, err error) {
	switch strings.ToLower(s.config.Provider) {
	case config.ProviderOpenWeatherMap:
		provider, err = openweathermap.New(http.New(s.logger), s.logger, s.clock, s.config.APIKey, s.config.Units)
		if err != nil {
			return provider, fmt.Errorf("failed to create OpenWeatherMap weather provider: %w", err)
		}
	case config.ProviderOpenMeteo:
		provider, err = openmeteo.New(s.logger, s.clock, s.config.Units, s.config.Location())
		if err != nil {
			return provider, fmt.Errorf("failed to create Open-Meteo weather provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported weather provider: %s", s.config.Provider)
	}
	return provider, nil
}
