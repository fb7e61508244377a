// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
)

type mockBand struct {
	interval time.Duration

	handler   atomic.Pointer[SampleHandler]
	streaming atomic.Bool

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMockBand creates a band that emits smooth synthetic EMG at rateHz
// while a streaming mode is set.
func NewMockBand(rateHz int) Band {
	if rateHz <= 0 {
		rateHz = 50
	}
	b := &mockBand{
		interval: time.Second / time.Duration(rateHz),
		stop:     make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	klog.Infof("mock: band emitting at %d Hz", rateHz)
	return b
}

func (b *mockBand) run() {
	defer b.wg.Done()
	start := time.Now()
	rng := rand.New(rand.NewPCG(uint64(start.UnixNano()), 7))
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case t := <-ticker.C:
			if !b.streaming.Load() {
				continue
			}
			h := b.handler.Load()
			if h == nil {
				continue
			}
			elapsed := t.Sub(start).Seconds()
			s := emg.Sample{Time: t}
			for i := range s.Values {
				phase := float64(i) * math.Pi / emg.Channels
				s.Values[i] = int32(200 + 150*math.Sin(elapsed*1.3+phase) + rng.Float64()*20)
			}
			(*h)(s)
		}
	}
}

func (b *mockBand) SetEMGMode(ctx context.Context, mode EMGMode) error {
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: "set_mode", Err: err}
	}
	b.streaming.Store(mode != EMGModeNone)
	return nil
}

func (b *mockBand) SetSleepMode(ctx context.Context, mode SleepMode) error {
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: "set_sleep_mode", Err: err}
	}
	return nil
}

func (b *mockBand) Vibrate(ctx context.Context, steps ...VibrationStep) error {
	klog.V(1).Infof("mock: vibrate %d steps", len(steps))
	return nil
}

func (b *mockBand) OnEMG(h SampleHandler) {
	if h == nil {
		b.handler.Store(nil)
		return
	}
	b.handler.Store(&h)
}

func (b *mockBand) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		b.wg.Wait()
	})
	return nil
}
