package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

// serialBand reads a line-oriented EMG board: one sample per line, eight
// integers separated by commas or whitespace. The board streams
// continuously; the streaming mode only gates delivery on the host.
type serialBand struct {
	name   string
	port   io.ReadWriteCloser
	haptic Haptic

	handler   atomic.Pointer[SampleHandler]
	streaming atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
}

// OpenSerial opens the EMG board on portName. haptic may be nil.
func OpenSerial(portName string, baudRate uint, haptic Haptic) (Band, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial: %w: open %s: %v", ErrDeviceNotFound, portName, err)
	}
	klog.Infof("serial: EMG board opened on %s at %d baud", portName, baudRate)

	return newSerialBand(portName, port, haptic), nil
}

func newSerialBand(name string, port io.ReadWriteCloser, haptic Haptic) *serialBand {
	b := &serialBand{
		name:   name,
		port:   port,
		haptic: haptic,
		done:   make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *serialBand) readLoop() {
	defer close(b.done)
	reader := bufio.NewReader(b.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				klog.Warningf("serial: read error on %s: %v", b.name, err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !b.streaming.Load() {
			continue
		}
		s, err := parseBoardLine(line, time.Now())
		if err != nil {
			// noisy boards emit partial lines on reset
			klog.V(2).Infof("serial: %v", err)
			continue
		}
		if h := b.handler.Load(); h != nil {
			(*h)(s)
		}
	}
}

// parseBoardLine parses "v1,v2,...,v8" or "v1 v2 ... v8".
func parseBoardLine(line string, at time.Time) (emg.Sample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) != emg.Channels {
		return emg.Sample{}, fmt.Errorf("expected %d channels, got %d in %q", emg.Channels, len(fields), line)
	}
	s := emg.Sample{Time: at}
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return emg.Sample{}, fmt.Errorf("channel %d: %w", i+1, err)
		}
		s.Values[i] = int32(v)
	}
	return s, nil
}

func (b *serialBand) SetEMGMode(ctx context.Context, mode EMGMode) error {
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: "set_mode", Err: err}
	}
	b.streaming.Store(mode != EMGModeNone)
	return nil
}

// SetSleepMode is accepted for interface parity; wired boards never sleep.
func (b *serialBand) SetSleepMode(ctx context.Context, mode SleepMode) error {
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: "set_sleep_mode", Err: err}
	}
	return nil
}

func (b *serialBand) Vibrate(ctx context.Context, steps ...VibrationStep) error {
	if b.haptic == nil {
		return nil
	}
	if err := b.haptic.Pulse(ctx, steps...); err != nil {
		return &CommandError{Command: "vibrate", Err: err}
	}
	return nil
}

func (b *serialBand) OnEMG(h SampleHandler) {
	if h == nil {
		b.handler.Store(nil)
		return
	}
	b.handler.Store(&h)
}

func (b *serialBand) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.streaming.Store(false)
		b.handler.Store(nil)
		err = b.port.Close()
		<-b.done
		klog.Infof("serial: closed %s", b.name)
	})
	return err
}
