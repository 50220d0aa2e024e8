// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package telemetry publishes the outcome of each refresh cycle to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wneessen/inkweather/internal/config"
	"github.com/wneessen/inkweather/internal/logger"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250
	qosAtLeastOnce = 1
)

var ErrTimeout = errors.New("mqtt operation timed out")

// Report is the JSON payload published after every cycle.
type Report struct {
	SOC         int        `json:"soc"`
	Charging    bool       `json:"charging"`
	OK          bool       `json:"ok"`
	Error       string     `json:"error,omitempty"`
	RefreshedAt time.Time  `json:"refreshed_at"`
	NextWake    *time.Time `json:"next_wake,omitempty"`
}

// Publisher sends reports. A disabled Publisher does nothing.
type Publisher struct {
	client  mqtt.Client
	topic   string
	log     *logger.Logger
	enabled bool
}

// New returns a Publisher for the MQTT settings in conf. The broker connection is opened on
// the first report.
func New(log *logger.Logger, conf *config.Config) *Publisher {
	if !conf.MQTT.Enabled {
		return &Publisher{log: log}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(conf.MQTT.Broker).
		SetClientID(conf.MQTT.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("MQTT connection lost", logger.Err(err))
		})
	if conf.MQTT.Username != "" {
		opts.SetUsername(conf.MQTT.Username)
		opts.SetPassword(conf.MQTT.Password)
	}
	return NewWithClient(log, mqtt.NewClient(opts), conf.MQTT.Topic)
}

// NewWithClient returns an enabled Publisher using an existing client.
func NewWithClient(log *logger.Logger, client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic, log: log, enabled: true}
}

func (p *Publisher) Enabled() bool {
	return p.enabled
}

// Publish sends the report as a retained message. Failures are logged and never returned,
// telemetry must not affect the refresh cycle.
func (p *Publisher) Publish(report Report) {
	if !p.enabled {
		return
	}
	if err := p.publish(report); err != nil {
		p.log.Warn("failed to publish telemetry", slog.String("topic", p.topic), logger.Err(err))
		return
	}
	p.log.Debug("telemetry published", slog.String("topic", p.topic), slog.Bool("ok", report.OK))
}

func (p *Publisher) publish(report Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if !p.client.IsConnected() {
		if err = wait(p.client.Connect(), connectTimeout); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
	}
	if err = wait(p.client.Publish(p.topic, qosAtLeastOnce, true, payload), publishTimeout); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.enabled && p.client.IsConnected() {
		p.client.Disconnect(disconnectWait)
	}
}

func wait(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return ErrTimeout
	}
	return token.Error()
}
