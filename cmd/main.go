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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-audio-check/internal/audio"
	"github.com/loqalabs/loqa-audio-check/internal/config"
	"github.com/loqalabs/loqa-audio-check/internal/logging"
	"github.com/loqalabs/loqa-audio-check/internal/nats"
	"github.com/loqalabs/loqa-audio-check/internal/smoketest"
)

// exitError carries a process exit status out of RunE
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// app holds the injectable collaborators of the command
type app struct {
	newBackend func() audio.AudioBackend
	dial       nats.Dialer
	stdout     io.Writer
	stderr     io.Writer
}

func defaultApp() *app {
	return &app{
		newBackend: func() audio.AudioBackend { return audio.NewPortAudioBackend() },
		dial:       nats.DefaultDialer,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loqa-audio-check",
		Short:         "Check audio library integration and list recording devices",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString(config.FlagConfig)
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	defer func() { _ = logger.Sync() }()

	runner := smoketest.NewRunner(a.newBackend(), a.stdout, a.stderr,
		smoketest.WithLogger(logger),
		smoketest.WithPuckID(cfg.Puck.ID))

	report, err := runner.Run()
	if err != nil {
		return &exitError{code: smoketest.ExitCode(err), err: err}
	}

	if cfg.NATS.URL != "" {
		a.publish(cfg, report, logger)
	}
	return nil
}

// publish sends the report; failures are logged and never change the exit status
func (a *app) publish(cfg config.Config, report *smoketest.Report, logger *zap.Logger) {
	publisher, err := nats.NewReportPublisher(nats.PublisherConfig{
		URL:             cfg.NATS.URL,
		PuckID:          cfg.Puck.ID,
		SubjectPrefix:   cfg.NATS.SubjectPrefix,
		ConnectAttempts: cfg.NATS.ConnectAttempts,
		ConnectDelay:    cfg.NATS.ConnectDelay.Duration,
	}, a.dial, logger)
	if err != nil {
		logger.Warn("device report not published", zap.Error(err))
		return
	}
	defer publisher.Close()

	if err := publisher.Publish(report); err != nil {
		logger.Warn("device report not published", zap.Error(err))
	}
}

// execute runs the command and returns the process exit status
func execute(a *app, args []string) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return smoketest.ExitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		// Init failures already printed their own line
		if !errors.Is(err, smoketest.ErrInitFailed) {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
		return exitErr.code
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return 1
}

func main() {
	os.Exit(execute(defaultApp(), os.Args[1:]))
}
