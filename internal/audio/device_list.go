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

import "sync"

// DeviceList is the array of device identifiers returned by an enumeration.
// It must be released exactly once through Release.
type DeviceList struct {
	mu       sync.Mutex
	ids      []DeviceID
	release  func()
	released bool
}

// NewDeviceList wraps ids with the backend's deallocation function
func NewDeviceList(ids []DeviceID, release func()) *DeviceList {
	return &DeviceList{
		ids:     ids,
		release: release,
	}
}

// Len returns the number of devices; a nil list has none
func (l *DeviceList) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return 0
	}
	return len(l.ids)
}

// ID returns the identifier at index i
func (l *DeviceList) ID(i int) DeviceID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[i]
}

// Released reports whether Release has run
func (l *DeviceList) Released() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

// Release hands the list back to the library.
// The deallocation function runs once; later calls return ErrListReleased.
func (l *DeviceList) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return ErrListReleased
	}

	l.released = true
	l.ids = nil
	if l.release != nil {
		l.release()
	}
	return nil
}
