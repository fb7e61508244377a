package device

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

// Myo GATT characteristics are 16-bit ids inside a vendor base UUID.
const myoUUIDFormat = "d506%04x-a904-deb9-4748-2c7f4a124842"

const (
	myoCommandChar uint16 = 0x0401
	myoSmoothChar  uint16 = 0x0104
	myoEMGChar0    uint16 = 0x0105
	myoEMGChar1    uint16 = 0x0205
	myoEMGChar2    uint16 = 0x0305
	myoEMGChar3    uint16 = 0x0405
)

const (
	cmdSetMode      byte = 0x01
	cmdVibrate      byte = 0x03
	cmdVibrate2     byte = 0x07
	cmdSetSleepMode byte = 0x09

	imuModeNone        byte = 0x00
	classifierDisabled byte = 0x00

	maxVibrationSteps = 6
)

func myoUUID(short uint16) string {
	return fmt.Sprintf(myoUUIDFormat, short)
}

func encodeSetMode(mode EMGMode) []byte {
	return []byte{cmdSetMode, 3, byte(mode), imuModeNone, classifierDisabled}
}

func encodeSleepMode(mode SleepMode) []byte {
	return []byte{cmdSetSleepMode, 1, byte(mode)}
}

// encodeVibrate builds the built-in short (1), medium (2) or long (3) buzz.
func encodeVibrate(kind byte) []byte {
	return []byte{cmdVibrate, 1, kind}
}

// encodeVibrate2 packs up to six (duration, strength) steps; unused steps are zero.
func encodeVibrate2(steps []VibrationStep) ([]byte, error) {
	if len(steps) > maxVibrationSteps {
		return nil, fmt.Errorf("vibrate2 supports at most %d steps, got %d", maxVibrationSteps, len(steps))
	}
	buf := make([]byte, 2+3*maxVibrationSteps)
	buf[0] = cmdVibrate2
	buf[1] = 3 * maxVibrationSteps
	for i, s := range steps {
		ms := s.Duration.Milliseconds()
		if ms < 0 || ms > 0xFFFF {
			return nil, fmt.Errorf("vibrate2 step %d duration %v out of range", i, s.Duration)
		}
		off := 2 + 3*i
		binary.LittleEndian.PutUint16(buf[off:], uint16(ms))
		buf[off+2] = s.Strength
	}
	return buf, nil
}

// decodeSmooth reads the smoothed envelope notification: 8 little-endian uint16.
func decodeSmooth(buf []byte, at time.Time) (emg.Sample, error) {
	if len(buf) < 2*emg.Channels {
		return emg.Sample{}, fmt.Errorf("smooth EMG payload too short: %d bytes", len(buf))
	}
	s := emg.Sample{Time: at}
	for i := range s.Values {
		s.Values[i] = int32(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return s, nil
}

// decodeEMGPair reads a filtered/raw notification carrying two consecutive
// samples of 8 signed bytes each.
func decodeEMGPair(buf []byte, at time.Time) ([2]emg.Sample, error) {
	var out [2]emg.Sample
	if len(buf) < 2*emg.Channels {
		return out, fmt.Errorf("EMG payload too short: %d bytes", len(buf))
	}
	for k := range out {
		out[k].Time = at
		for i := 0; i < emg.Channels; i++ {
			out[k].Values[i] = int32(int8(buf[k*emg.Channels+i]))
		}
	}
	return out, nil
}
