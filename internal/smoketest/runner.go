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

// Package smoketest runs the recording-device check against an audio backend:
// initialize, print the library revision, list recording devices, release
// the device list and shut the subsystem down.
package smoketest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-audio-check/internal/audio"
)

// UnknownDeviceName is printed for devices whose name cannot be resolved
const UnknownDeviceName = "Unknown"

// ErrInitFailed is the only fatal outcome of a run
var ErrInitFailed = errors.New("audio subsystem initialization failed")

// Exit codes of the check
const (
	ExitOK         = 0
	ExitInitFailed = 1
)

// Runner executes the smoke test
type Runner struct {
	backend audio.AudioBackend
	stdout  io.Writer
	stderr  io.Writer
	logger  *zap.Logger
	puckID  string
	now     func() time.Time
}

// Option customizes a Runner
type Option func(*Runner)

// WithLogger sets the diagnostic logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithPuckID sets the identifier recorded in the report
func WithPuckID(id string) Option {
	return func(r *Runner) {
		r.puckID = id
	}
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner printing to stdout and stderr
func NewRunner(backend audio.AudioBackend, stdout, stderr io.Writer, opts ...Option) *Runner {
	r := &Runner{
		backend: backend,
		stdout:  stdout,
		stderr:  stderr,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs the check. The returned error wraps ErrInitFailed when the
// subsystem could not be initialized; no enumeration happens in that case.
func (r *Runner) Run() (*Report, error) {
	lib := r.backend.Name()
	fmt.Fprintf(r.stdout, "Testing %s integration...\n", lib)

	if err := r.backend.Initialize(); err != nil {
		fmt.Fprintf(r.stderr, "Failed to initialize %s: %v\n", lib, err)
		r.logger.Error("audio initialization failed", zap.String("library", lib), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	report := newReport(r.puckID, lib, r.now())
	report.Revision = r.backend.Revision()

	fmt.Fprintf(r.stdout, "%s initialized successfully!\n", lib)
	fmt.Fprintf(r.stdout, "%s Version: %s\n", lib, report.Revision)

	r.listDevices(report)

	if err := r.backend.Terminate(); err != nil {
		r.logger.Warn("audio shutdown failed", zap.String("library", lib), zap.Error(err))
	}

	fmt.Fprintf(r.stdout, "\n%s test completed successfully!\n", lib)
	return report, nil
}

// listDevices prints the recording devices and releases the list in the same scope
func (r *Runner) listDevices(report *Report) {
	list, err := r.backend.RecordingDevices()
	if err != nil {
		// Treated like a missing array, not a failure
		r.logger.Warn("device enumeration returned an error", zap.Error(err))
		list = nil
	}

	count := list.Len()
	fmt.Fprintf(r.stdout, "Found %d audio recording device(s)\n", count)

	if list == nil {
		r.logger.Debug("no device array returned")
		return
	}
	defer func() {
		if err := list.Release(); err != nil {
			r.logger.Warn("device list release failed", zap.Error(err))
		}
	}()

	for i := 0; i < count; i++ {
		id := list.ID(i)
		name, ok := r.backend.DeviceName(id)
		if !ok {
			name = UnknownDeviceName
		}
		details, _ := r.backend.DeviceDetails(id)

		fmt.Fprintf(r.stdout, "  Device %d: %s\n", i, name)
		report.Devices = append(report.Devices, newDeviceEntry(i, id, name, ok, details))

		r.logger.Debug("recording device",
			zap.Int("index", i),
			zap.Int("id", int(id)),
			zap.String("name", name),
			zap.String("host_api", details.HostAPI))
	}
}

// ExitCode maps a Run error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitInitFailed
}
