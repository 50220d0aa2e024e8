// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"time"

	"github.com/wneessen/inkweather/internal/weather"
)

const FetchTimeout = time.Second * 10

func (s *Service) fetchWeather(ctx context.Context) (*weather.Response, error) {
	ctxFetch, cancelFetch := context.WithTimeout(ctx, FetchTimeout)
	defer cancelFetch()

	coords := weather.Coordinates{Lat: s.config.Lat, Lon: s.config.Lon}
	data, err := s.provider.GetWeather(ctxFetch, coords)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("weather data fetched", "provider", s.provider.Name(), "city", s.config.City)
	return data, nil
}
