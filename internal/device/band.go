// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

// ErrDeviceNotFound is returned when no band answers at the configured address.
var ErrDeviceNotFound = errors.New("device not found")

// CommandError reports a failed configuration command sent to the band.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device command %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// EMGMode selects whether and how the band streams EMG notifications.
type EMGMode byte

const (
	EMGModeNone     EMGMode = 0x00
	EMGModeSmooth   EMGMode = 0x01 // rectified, smoothed envelope
	EMGModeFiltered EMGMode = 0x02
	EMGModeRaw      EMGMode = 0x03
)

func (m EMGMode) String() string {
	switch m {
	case EMGModeNone:
		return "none"
	case EMGModeSmooth:
		return "smooth"
	case EMGModeFiltered:
		return "filtered"
	case EMGModeRaw:
		return "raw"
	}
	return fmt.Sprintf("EMGMode(0x%02x)", byte(m))
}

// ParseEMGMode maps a config value to a streaming mode.
func ParseEMGMode(s string) (EMGMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return EMGModeNone, nil
	case "smooth":
		return EMGModeSmooth, nil
	case "filtered":
		return EMGModeFiltered, nil
	case "raw":
		return EMGModeRaw, nil
	}
	return EMGModeNone, fmt.Errorf("unknown EMG mode %q", s)
}

// SleepMode controls the band's idle power saving.
type SleepMode byte

const (
	SleepNormal SleepMode = 0x00
	SleepNever  SleepMode = 0x01
)

// VibrationStep is one segment of a haptic pattern.
type VibrationStep struct {
	Duration time.Duration
	Strength uint8
}

// FeedbackPattern is played at the end of every collection window.
var FeedbackPattern = []VibrationStep{
	{Duration: 100 * time.Millisecond, Strength: 200},
	{Duration: 50 * time.Millisecond, Strength: 255},
}

// SampleHandler receives one EMG sample. It is called on the device's own
// I/O context and must return quickly.
type SampleHandler func(emg.Sample)

// Band is the narrow surface the pipeline needs from an EMG wearable.
// At most one handler is registered at a time; OnEMG(nil) detaches it.
type Band interface {
	SetEMGMode(ctx context.Context, mode EMGMode) error
	SetSleepMode(ctx context.Context, mode SleepMode) error
	Vibrate(ctx context.Context, steps ...VibrationStep) error
	OnEMG(h SampleHandler)
	Close() error
}
