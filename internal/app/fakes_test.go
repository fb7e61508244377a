package app

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/myo_landmarks/internal/device"
	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

// scriptedBand emits a fixed burst of samples every time streaming is
// switched on, synchronously from inside SetEMGMode.
type scriptedBand struct {
	mu         sync.Mutex
	handler    device.SampleHandler
	burst      func(n int) []emg.Sample
	windows    int
	modes      []device.EMGMode
	sleepModes []device.SleepMode
	vibrations int
	vibrateErr error
	closed     bool
}

func burstOf(count int) func(int) []emg.Sample {
	return func(window int) []emg.Sample {
		base := time.Unix(1700000000, 0).Add(time.Duration(window) * time.Minute)
		out := make([]emg.Sample, count)
		for i := range out {
			out[i] = emg.Sample{
				Time:   base.Add(time.Duration(i) * 20 * time.Millisecond),
				Values: [emg.Channels]int32{int32(window), int32(i), 3, 4, 5, 6, 7, 8},
			}
		}
		return out
	}
}

func (b *scriptedBand) SetEMGMode(ctx context.Context, mode device.EMGMode) error {
	b.mu.Lock()
	b.modes = append(b.modes, mode)
	h := b.handler
	var samples []emg.Sample
	if mode != device.EMGModeNone && b.burst != nil {
		samples = b.burst(b.windows)
		b.windows++
	}
	b.mu.Unlock()
	if h != nil {
		for _, s := range samples {
			h(s)
		}
	}
	return nil
}

func (b *scriptedBand) SetSleepMode(ctx context.Context, mode device.SleepMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sleepModes = append(b.sleepModes, mode)
	return nil
}

func (b *scriptedBand) Vibrate(ctx context.Context, steps ...device.VibrationStep) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vibrations++
	if b.vibrateErr != nil && b.vibrations == 1 {
		return &device.CommandError{Command: "vibrate2", Err: b.vibrateErr}
	}
	return nil
}

func (b *scriptedBand) OnEMG(h device.SampleHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *scriptedBand) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *scriptedBand) lastMode() device.EMGMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.modes) == 0 {
		return device.EMGModeNone
	}
	return b.modes[len(b.modes)-1]
}

type scriptedPrompt struct {
	poses []string
	// blocked, if set, is closed when the prompt starts waiting for ctx.
	blocked chan struct{}
}

func (p *scriptedPrompt) NextPose(ctx context.Context) (string, bool, error) {
	if len(p.poses) == 0 {
		if p.blocked != nil {
			close(p.blocked)
			<-ctx.Done()
			return "", false, ctx.Err()
		}
		return "", false, nil
	}
	pose := p.poses[0]
	p.poses = p.poses[1:]
	return pose, true, nil
}

type recordingReporter struct {
	mu     sync.Mutex
	events []Status
}

func (r *recordingReporter) Report(s Status) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recordingReporter) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.events))
	for i, e := range r.events {
		out[i] = e.Phase
	}
	return out
}

func (r *recordingReporter) last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
