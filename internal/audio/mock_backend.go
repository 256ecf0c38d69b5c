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

package audio

import (
	"fmt"
	"sync"
)

// MockDevice describes one device exposed by the mock backend.
// An empty Name simulates a device whose name cannot be resolved.
type MockDevice struct {
	Name    string
	Details DeviceDetails
}

// MockAudioBackend implements AudioBackend for testing without hardware dependencies
type MockAudioBackend struct {
	mu             sync.Mutex
	initialized    bool
	revision       string
	devices        []MockDevice
	current        map[DeviceID]MockDevice
	nilList        bool
	initError      error
	terminateError error
	enumerateError error
	releaseCount   int
	calls          []string
}

// NewMockAudioBackend creates a new mock audio backend
func NewMockAudioBackend() *MockAudioBackend {
	return &MockAudioBackend{
		revision: "mock-revision-1",
	}
}

// SetInitError configures the backend to return an error on Initialize()
func (m *MockAudioBackend) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initError = err
}

// SetTerminateError configures the backend to return an error on Terminate()
func (m *MockAudioBackend) SetTerminateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminateError = err
}

// SetEnumerateError configures the backend to fail device enumeration
func (m *MockAudioBackend) SetEnumerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enumerateError = err
}

// SetNilList makes enumeration return no array at all
func (m *MockAudioBackend) SetNilList(nilList bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nilList = nilList
}

// SetRevision sets the revision string reported by the backend
func (m *MockAudioBackend) SetRevision(revision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revision = revision
}

// SetDevices replaces the recording devices the backend reports
func (m *MockAudioBackend) SetDevices(devices ...MockDevice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append([]MockDevice(nil), devices...)
}

// ReleaseCount returns how many times a device list was released
func (m *MockAudioBackend) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCount
}

// IsInitialized reports whether the subsystem is currently up
func (m *MockAudioBackend) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Calls returns the backend methods invoked so far, in order
func (m *MockAudioBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Name returns the mock library name
func (m *MockAudioBackend) Name() string {
	return "MockAudio"
}

// Initialize initializes the mock audio subsystem
func (m *MockAudioBackend) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Initialize")

	if m.initError != nil {
		return m.initError
	}

	m.initialized = true
	return nil
}

// Terminate terminates the mock audio subsystem
func (m *MockAudioBackend) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Terminate")

	if m.terminateError != nil {
		return m.terminateError
	}

	m.initialized = false
	m.current = nil
	return nil
}

// Revision returns the configured revision string
func (m *MockAudioBackend) Revision() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Revision")
	return m.revision
}

// RecordingDevices returns a list over the configured devices
func (m *MockAudioBackend) RecordingDevices() (*DeviceList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "RecordingDevices")

	if !m.initialized {
		return nil, fmt.Errorf("mock audio backend: %w", ErrNotInitialized)
	}

	if m.enumerateError != nil {
		return nil, m.enumerateError
	}

	if m.nilList {
		return nil, nil
	}

	m.current = make(map[DeviceID]MockDevice, len(m.devices))
	ids := make([]DeviceID, len(m.devices))
	for i, device := range m.devices {
		// Offset IDs so tests catch index/ID confusion
		id := DeviceID(100 + i)
		m.current[id] = device
		ids[i] = id
	}

	return NewDeviceList(ids, m.release), nil
}

// release runs under the list's lock, never under m.mu
func (m *MockAudioBackend) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "Release")
	m.releaseCount++
	m.current = nil
}

// DeviceName resolves a name from the current list
func (m *MockAudioBackend) DeviceName(id DeviceID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "DeviceName")

	device, ok := m.current[id]
	if !ok || device.Name == "" {
		return "", false
	}
	return device.Name, true
}

// DeviceDetails returns the configured details from the current list
func (m *MockAudioBackend) DeviceDetails(id DeviceID) (DeviceDetails, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	device, ok := m.current[id]
	if !ok {
		return DeviceDetails{}, false
	}
	return device.Details, true
}
