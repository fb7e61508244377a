package device

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
)

// Open connects to the band selected by cfg.DeviceKind.
func Open(ctx context.Context, cfg *config.Config) (Band, error) {
	if err := cfg.ValidateDevice(); err != nil {
		return nil, err
	}
	switch cfg.DeviceKind {
	case config.DeviceMyo:
		return OpenMyo(ctx, cfg.MyoAddress, cfg.ScanTimeout)
	case config.DeviceSerial:
		var haptic Haptic
		if cfg.HapticGPIOPin != "" {
			h, err := NewGPIOHaptic(cfg.HapticGPIOPin)
			if err != nil {
				klog.Warningf("serial: haptic feedback disabled: %v", err)
			} else {
				haptic = h
			}
		}
		return OpenSerial(cfg.SerialPort, cfg.SerialBaudRate, haptic)
	case config.DeviceMock:
		return NewMockBand(cfg.MockSampleRateHz), nil
	}
	return nil, fmt.Errorf("unknown device kind %q", cfg.DeviceKind)
}

// Prepare waits for the link to settle and applies the never-sleep policy
// every long running session needs. The band otherwise drops the stream
// after its idle timeout.
func Prepare(ctx context.Context, b Band, before, after time.Duration) error {
	if err := sleepCtx(ctx, before); err != nil {
		return err
	}
	if err := b.SetSleepMode(ctx, SleepNever); err != nil {
		return err
	}
	return sleepCtx(ctx, after)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
