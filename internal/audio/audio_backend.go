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

import "errors"

var (
	// ErrNotInitialized is returned when the subsystem is used before Initialize
	ErrNotInitialized = errors.New("audio subsystem not initialized")

	// ErrListReleased is returned when a device list is released a second time
	ErrListReleased = errors.New("device list already released")
)

// AudioBackend provides an abstraction layer over the platform audio library
// This enables dependency injection and makes testing hardware-independent
type AudioBackend interface {
	// Name returns the display name of the audio library
	Name() string

	// Initialize the audio subsystem
	Initialize() error

	// Terminate the audio subsystem
	Terminate() error

	// Revision returns the library build/revision identifier
	Revision() string

	// RecordingDevices enumerates audio recording devices.
	// A nil list with a nil error means the library returned no array.
	RecordingDevices() (*DeviceList, error)

	// DeviceName resolves the display name of a device from the current list
	DeviceName(id DeviceID) (string, bool)

	// DeviceDetails returns extra information about a device from the current list
	DeviceDetails(id DeviceID) (DeviceDetails, bool)
}

// DeviceID names one recording device for the duration of one enumeration
type DeviceID int

// DeviceDetails holds the properties captured for a device at enumeration time
type DeviceDetails struct {
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
}
