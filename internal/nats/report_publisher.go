/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-audio-check/internal/smoketest"
)

// DeviceReportMessage is the payload published for each smoke-test run
type DeviceReportMessage struct {
	MessageType string            `json:"message_type"` // always "device_report"
	Report      *smoketest.Report `json:"report"`
}

// PuckNATSConnection interface for dependency injection
type PuckNATSConnection interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// PuckNATSConnectionAdapter adapts *nats.Conn to PuckNATSConnection interface
type PuckNATSConnectionAdapter struct {
	conn *nats.Conn
}

func NewPuckNATSConnectionAdapter(conn *nats.Conn) *PuckNATSConnectionAdapter {
	return &PuckNATSConnectionAdapter{conn: conn}
}

func (r *PuckNATSConnectionAdapter) Publish(subject string, data []byte) error {
	return r.conn.Publish(subject, data)
}

func (r *PuckNATSConnectionAdapter) FlushTimeout(timeout time.Duration) error {
	return r.conn.FlushTimeout(timeout)
}

func (r *PuckNATSConnectionAdapter) Close() {
	r.conn.Close()
}

// PublisherConfig controls connection retries and the report subject
type PublisherConfig struct {
	URL             string
	PuckID          string
	SubjectPrefix   string
	ConnectAttempts int
	ConnectDelay    time.Duration
	FlushTimeout    time.Duration
}

// Dialer opens a NATS connection; replaced in tests
type Dialer func(url string, opts ...nats.Option) (PuckNATSConnection, error)

// DefaultDialer connects with nats.Connect
func DefaultDialer(url string, opts ...nats.Option) (PuckNATSConnection, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return NewPuckNATSConnectionAdapter(nc), nil
}

// ReportPublisher publishes device reports to NATS
type ReportPublisher struct {
	natsConn     PuckNATSConnection
	subject      string
	flushTimeout time.Duration
	logger       *zap.Logger
}

// NewReportPublisher connects to NATS with retry
func NewReportPublisher(cfg PublisherConfig, dial Dialer, logger *zap.Logger) (*ReportPublisher, error) {
	if dial == nil {
		dial = DefaultDialer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var nc PuckNATSConnection
	var err error

	for i := 0; i < attempts; i++ {
		nc, err = dial(cfg.URL, nats.Name("loqa-audio-check"), nats.Timeout(5*time.Second))
		if err == nil {
			break
		}
		logger.Warn("failed to connect to NATS",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if i < attempts-1 {
			time.Sleep(cfg.ConnectDelay)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", attempts, err)
	}

	logger.Info("connected to NATS", zap.String("url", cfg.URL))
	return NewReportPublisherWithConnection(nc, cfg, logger), nil
}

// NewReportPublisherWithConnection creates a publisher with an existing connection (for testing)
func NewReportPublisherWithConnection(natsConn PuckNATSConnection, cfg PublisherConfig, logger *zap.Logger) *ReportPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = 2 * time.Second
	}
	return &ReportPublisher{
		natsConn:     natsConn,
		subject:      ReportSubject(cfg.SubjectPrefix, cfg.PuckID),
		flushTimeout: flush,
		logger:       logger,
	}
}

// ReportSubject returns the subject a puck's reports are published on
func ReportSubject(prefix, puckID string) string {
	return fmt.Sprintf("%s.%s", prefix, puckID)
}

// Subject returns the subject this publisher writes to
func (rp *ReportPublisher) Subject() string {
	return rp.subject
}

// Publish sends the report and waits for the server to acknowledge the flush
func (rp *ReportPublisher) Publish(report *smoketest.Report) error {
	if report == nil {
		return fmt.Errorf("no report to publish")
	}

	data, err := json.Marshal(DeviceReportMessage{
		MessageType: "device_report",
		Report:      report,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal device report: %w", err)
	}

	if err := rp.natsConn.Publish(rp.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", rp.subject, err)
	}
	if err := rp.natsConn.FlushTimeout(rp.flushTimeout); err != nil {
		return fmt.Errorf("failed to flush report to %s: %w", rp.subject, err)
	}

	rp.logger.Info("published device report",
		zap.String("subject", rp.subject),
		zap.String("report_id", report.ReportID),
		zap.Int("devices", len(report.Devices)))
	return nil
}

// Close closes the NATS connection
func (rp *ReportPublisher) Close() {
	if rp.natsConn != nil {
		rp.natsConn.Close()
		rp.logger.Debug("NATS connection closed")
	}
}
