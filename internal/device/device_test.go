package device

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

func TestEncodeCommands(t *testing.T) {
	assert.Equal(t, []byte{0x01, 3, 0x01, 0, 0}, encodeSetMode(EMGModeSmooth))
	assert.Equal(t, []byte{0x01, 3, 0x00, 0, 0}, encodeSetMode(EMGModeNone))
	assert.Equal(t, []byte{0x09, 1, 0x01}, encodeSleepMode(SleepNever))
	assert.Equal(t, []byte{0x03, 1, 2}, encodeVibrate(2))
}

func TestEncodeVibrate2(t *testing.T) {
	buf, err := encodeVibrate2(FeedbackPattern)
	require.NoError(t, err)
	require.Len(t, buf, 20)
	assert.Equal(t, byte(0x07), buf[0])
	assert.Equal(t, byte(18), buf[1])
	// 100ms @ 200, then 50ms @ 255, rest zero
	assert.Equal(t, []byte{100, 0, 200, 50, 0, 255}, buf[2:8])
	assert.Equal(t, make([]byte, 12), buf[8:])

	_, err = encodeVibrate2(make([]VibrationStep, 7))
	assert.Error(t, err)
	_, err = encodeVibrate2([]VibrationStep{{Duration: time.Minute, Strength: 1}})
	assert.NoError(t, err, "60000 ms fits in the uint16 field")
	_, err = encodeVibrate2([]VibrationStep{{Duration: 70 * time.Second, Strength: 1}})
	assert.Error(t, err)
}

func TestDecodeSmooth(t *testing.T) {
	at := time.Unix(1700000000, 0)
	buf := []byte{1, 0, 2, 0, 3, 0, 4, 0, 0, 1, 0xff, 0xff, 7, 0, 8, 0}
	s, err := decodeSmooth(buf, at)
	require.NoError(t, err)
	assert.Equal(t, [emg.Channels]int32{1, 2, 3, 4, 256, 65535, 7, 8}, s.Values)
	assert.Equal(t, at, s.Time)

	_, err = decodeSmooth(buf[:10], at)
	assert.Error(t, err)
}

func TestDecodeEMGPair(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 0xff, 0x80, 0, 127, 10, 20, 30, 40}
	pair, err := decodeEMGPair(buf, time.Now())
	require.NoError(t, err)
	assert.Equal(t, [emg.Channels]int32{1, 2, 3, 4, 5, 6, 7, 8}, pair[0].Values)
	assert.Equal(t, [emg.Channels]int32{-1, -128, 0, 127, 10, 20, 30, 40}, pair[1].Values)
}

func TestMyoUUID(t *testing.T) {
	assert.Equal(t, "d5060401-a904-deb9-4748-2c7f4a124842", myoUUID(myoCommandChar))
	assert.Equal(t, "d5060104-a904-deb9-4748-2c7f4a124842", myoUUID(myoSmoothChar))
}

func TestParseEMGMode(t *testing.T) {
	m, err := ParseEMGMode("Smooth")
	require.NoError(t, err)
	assert.Equal(t, EMGModeSmooth, m)
	assert.Equal(t, "raw", EMGModeRaw.String())
	_, err = ParseEMGMode("loud")
	assert.Error(t, err)
}

func TestCommandErrorUnwrap(t *testing.T) {
	cause := errors.New("gatt write failed")
	err := error(&CommandError{Command: "set_mode", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "set_mode")
}

func TestParseBoardLine(t *testing.T) {
	s, err := parseBoardLine("1, -2,3 4\t5;6,7,8", time.Now())
	require.NoError(t, err)
	assert.Equal(t, [emg.Channels]int32{1, -2, 3, 4, 5, 6, 7, 8}, s.Values)

	_, err = parseBoardLine("1,2,3", time.Now())
	assert.Error(t, err)
	_, err = parseBoardLine("1,2,3,4,5,6,7,x", time.Now())
	assert.Error(t, err)
}

// pipePort is an in-memory serial port.
type pipePort struct {
	io.Reader
	w *io.PipeWriter
	r *io.PipeReader
}

func (p *pipePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *pipePort) Close() error {
	_ = p.w.Close()
	return p.r.Close()
}

func TestSerialBandDeliversParsedLines(t *testing.T) {
	r, w := io.Pipe()
	band := newSerialBand("test", &pipePort{Reader: r, w: w, r: r}, nil)

	var mu sync.Mutex
	var got []emg.Sample
	band.OnEMG(func(s emg.Sample) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	require.NoError(t, band.SetEMGMode(context.Background(), EMGModeSmooth))
	_, err := io.WriteString(w, strings.Join([]string{
		"# board banner",
		"1,2,3,4,5,6,7,8",
		"garbage",
		"8 7 6 5 4 3 2 1",
	}, "\n")+"\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, band.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), got[0].Values[0])
	assert.Equal(t, int32(8), got[1].Values[0])
}

func TestMockBandStreamsOnlyWhenEnabled(t *testing.T) {
	band := NewMockBand(500)
	defer band.Close()

	var mu sync.Mutex
	count := 0
	band.OnEMG(func(emg.Sample) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, count)
	mu.Unlock()

	require.NoError(t, band.SetEMGMode(context.Background(), EMGModeSmooth))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestPrepareHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	band := NewMockBand(10)
	defer band.Close()
	err := Prepare(ctx, band, time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
