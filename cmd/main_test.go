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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-audio-check/internal/audio"
	"github.com/loqalabs/loqa-audio-check/internal/nats"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	closed   bool
}

func (f *fakeConn) Publish(subject string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error { return nil }

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func newTestApp(backend *audio.MockAudioBackend) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &app{
		newBackend: func() audio.AudioBackend { return backend },
		dial: func(string, ...natsgo.Option) (nats.PuckNATSConnection, error) {
			return nil, errors.New("dial not expected")
		},
		stdout: &stdout,
		stderr: &stderr,
	}, &stdout, &stderr
}

func TestExecute_NoArguments(t *testing.T) {
	backend := audio.NewMockAudioBackend()
	backend.SetDevices(audio.MockDevice{Name: "Built-in Microphone"}, audio.MockDevice{})
	a, stdout, stderr := newTestApp(backend)

	code := execute(a, []string{"--log-level", "error"})

	assert.Equal(t, 0, code)
	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "Testing MockAudio integration...\n"))
	assert.Contains(t, out, "MockAudio Version: mock-revision-1\n")
	assert.Contains(t, out, "Found 2 audio recording device(s)\n")
	assert.Contains(t, out, "  Device 0: Built-in Microphone\n")
	assert.Contains(t, out, "  Device 1: Unknown\n")
	assert.True(t, strings.HasSuffix(out, "\nMockAudio test completed successfully!\n"))
	assert.Empty(t, stderr.String())
	assert.Equal(t, 1, backend.ReleaseCount())
}

func TestExecute_InitFailure(t *testing.T) {
	backend := audio.NewMockAudioBackend()
	backend.SetInitError(errors.New("Invalid device"))
	a, stdout, stderr := newTestApp(backend)

	code := execute(a, []string{"--log-level", "error"})

	assert.Equal(t, 1, code)
	assert.Equal(t, "Testing MockAudio integration...\n", stdout.String())
	assert.Equal(t, "Failed to initialize MockAudio: Invalid device\n", stderr.String())
	assert.NotContains(t, backend.Calls(), "RecordingDevices")
}

func TestExecute_RejectsArguments(t *testing.T) {
	a, _, stderr := newTestApp(audio.NewMockAudioBackend())

	code := execute(a, []string{"extra"})

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Error:")
}

func TestExecute_InvalidConfig(t *testing.T) {
	backend := audio.NewMockAudioBackend()
	a, stdout, stderr := newTestApp(backend)

	code := execute(a, []string{"--log-level", "chatty"})

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "invalid configuration")
	assert.Empty(t, backend.Calls(), "backend must not be touched with a bad config")
}

func TestExecute_PublishesReport(t *testing.T) {
	backend := audio.NewMockAudioBackend()
	backend.SetDevices(audio.MockDevice{Name: "mic"})
	a, _, _ := newTestApp(backend)

	conn := &fakeConn{}
	a.dial = func(url string, _ ...natsgo.Option) (nats.PuckNATSConnection, error) {
		assert.Equal(t, "nats://hub:4222", url)
		return conn, nil
	}

	code := execute(a, []string{"--log-level", "error", "--nats", "nats://hub:4222", "--id", "den-puck"})

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"audio.devices.den-puck"}, conn.subjects)
	assert.True(t, conn.closed)
}

func TestExecute_PublishFailureKeepsExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiocheck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[nats]
url = "nats://unreachable:4222"
connect_attempts = 2
connect_delay = "1ms"
`), 0o600))

	a, stdout, _ := newTestApp(audio.NewMockAudioBackend())
	dials := 0
	a.dial = func(string, ...natsgo.Option) (nats.PuckNATSConnection, error) {
		dials++
		return nil, natsgo.ErrNoServers
	}

	code := execute(a, []string{"--config", path, "--log-level", "error"})

	assert.Equal(t, 0, code)
	assert.Equal(t, 2, dials)
	assert.Contains(t, stdout.String(), "test completed successfully!")
}

func TestExecute_RepeatedRunsMatch(t *testing.T) {
	backend := audio.NewMockAudioBackend()
	backend.SetDevices(audio.MockDevice{Name: "mic"})

	a1, out1, _ := newTestApp(backend)
	a2, out2, _ := newTestApp(backend)

	assert.Equal(t, execute(a1, []string{"--log-level", "error"}), execute(a2, []string{"--log-level", "error"}))
	assert.Equal(t, out1.String(), out2.String())
}
