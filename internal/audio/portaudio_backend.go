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

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend implements AudioBackend using the real PortAudio library
type PortAudioBackend struct {
	mu          sync.Mutex
	initialized bool

	// snapshot of the last enumeration, valid until its list is released
	devices    map[DeviceID]*portaudio.DeviceInfo
	generation int
}

// NewPortAudioBackend creates a new PortAudio backend
func NewPortAudioBackend() *PortAudioBackend {
	return &PortAudioBackend{}
}

// Name returns the library display name
func (p *PortAudioBackend) Name() string {
	return "PortAudio"
}

// Initialize initializes the PortAudio subsystem
func (p *PortAudioBackend) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// Returned unwrapped so callers print the library's own error text
	if err := portaudio.Initialize(); err != nil {
		return err
	}

	p.initialized = true
	return nil
}

// Terminate terminates the PortAudio subsystem
func (p *PortAudioBackend) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	err := portaudio.Terminate()
	p.initialized = false
	p.devices = nil
	return err
}

// Revision returns the PortAudio version text
func (p *PortAudioBackend) Revision() string {
	return portaudio.VersionText()
}

// RecordingDevices lists every device with at least one input channel
func (p *PortAudioBackend) RecordingDevices() (*DeviceList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, ErrNotInitialized
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if infos == nil {
		return nil, nil
	}

	snapshot := make(map[DeviceID]*portaudio.DeviceInfo)
	ids := make([]DeviceID, 0, len(infos))
	for i, info := range infos {
		if info == nil || info.MaxInputChannels <= 0 {
			continue
		}
		id := DeviceID(i)
		snapshot[id] = info
		ids = append(ids, id)
	}
	p.devices = snapshot
	p.generation++
	generation := p.generation

	return NewDeviceList(ids, func() { p.releaseSnapshot(generation) }), nil
}

// releaseSnapshot drops the enumeration snapshot unless a newer one replaced it
func (p *PortAudioBackend) releaseSnapshot(generation int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.generation == generation {
		p.devices = nil
	}
}

// DeviceName returns the device name from the current enumeration
func (p *PortAudioBackend) DeviceName(id DeviceID) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.devices[id]
	if !ok || info.Name == "" {
		return "", false
	}
	return info.Name, true
}

// DeviceDetails returns host API and input format of a device
func (p *PortAudioBackend) DeviceDetails(id DeviceID) (DeviceDetails, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.devices[id]
	if !ok {
		return DeviceDetails{}, false
	}

	details := DeviceDetails{
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
	}
	if info.HostApi != nil {
		details.HostAPI = info.HostApi.Name
	}
	return details, true
}
