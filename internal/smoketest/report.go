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

package smoketest

import (
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-audio-check/internal/audio"
)

// Report is the structured result of one smoke-test run
type Report struct {
	ReportID  string        `json:"report_id"`
	PuckID    string        `json:"puck_id"`
	Library   string        `json:"library"`
	Revision  string        `json:"revision"`
	Timestamp time.Time     `json:"timestamp"`
	Devices   []DeviceEntry `json:"devices"`
}

// DeviceEntry describes one recording device as printed by the check
type DeviceEntry struct {
	Index             int     `json:"index"`
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Named             bool    `json:"named"`
	HostAPI           string  `json:"host_api,omitempty"`
	MaxInputChannels  int     `json:"max_input_channels,omitempty"`
	DefaultSampleRate float64 `json:"default_sample_rate,omitempty"`
}

func newReport(puckID, library string, now time.Time) *Report {
	return &Report{
		ReportID:  uuid.NewString(),
		PuckID:    puckID,
		Library:   library,
		Timestamp: now.UTC(),
		Devices:   make([]DeviceEntry, 0),
	}
}

func newDeviceEntry(index int, id audio.DeviceID, name string, named bool, details audio.DeviceDetails) DeviceEntry {
	return DeviceEntry{
		Index:             index,
		ID:                int(id),
		Name:              name,
		Named:             named,
		HostAPI:           details.HostAPI,
		MaxInputChannels:  details.MaxInputChannels,
		DefaultSampleRate: details.DefaultSampleRate,
	}
}
