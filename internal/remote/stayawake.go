// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package remote reads the remote stay-awake flag that keeps the device from sleeping.
package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ihttp "github.com/wneessen/inkweather/internal/http"
	"github.com/wneessen/inkweather/internal/logger"
)

// Timeout is the maximum time a stay-awake check may take.
const Timeout = 3 * time.Second

type flag struct {
	Awake *bool `json:"awake"`
}

// StayAwake checks a JSON document of the form {"awake": true}.
type StayAwake struct {
	url    string
	http   *ihttp.Client
	logger *logger.Logger
}

// NewStayAwake returns a StayAwake checker for url.
func NewStayAwake(client *ihttp.Client, log *logger.Logger, url string) *StayAwake {
	return &StayAwake{url: url, http: client, logger: log}
}

// URL returns the URL that is checked.
func (s *StayAwake) URL() string {
	return s.url
}

// Check returns true only if the URL answers 200 with a JSON object whose "awake" field is
// the boolean true. Every other outcome, including timeouts, returns false.
func (s *StayAwake) Check(ctx context.Context) bool {
	res, err := s.http.GetRaw(ctx, s.url, nil, map[string]string{"Accept": "application/json"}, Timeout)
	if err != nil {
		s.logger.Debug("stay-awake check failed", logger.Err(err), slog.String("url", s.url))
		return false
	}
	if res.StatusCode != http.StatusOK {
		s.logger.Debug("stay-awake check returned non-OK status", slog.Int("code", res.StatusCode))
		return false
	}

	var f flag
	if err = json.Unmarshal(res.Body, &f); err != nil {
		s.logger.Debug("stay-awake flag is not valid JSON", logger.Err(err))
		return false
	}
	awake := f.Awake != nil && *f.Awake
	s.logger.Debug("stay-awake flag", slog.Bool("awake", awake))
	return awake
}
