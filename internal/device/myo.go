// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"
	"tinygo.org/x/bluetooth"
)

type myoBand struct {
	address string
	device  bluetooth.Device
	command bluetooth.DeviceCharacteristic

	handler atomic.Pointer[SampleHandler]

	writeMu   sync.Mutex // serializes command writes
	closeOnce sync.Once
}

// OpenMyo scans for the band at address, connects, and subscribes to its EMG
// characteristics. It fails with ErrDeviceNotFound if the band does not
// advertise within scanTimeout.
func OpenMyo(ctx context.Context, address string, scanTimeout time.Duration) (Band, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("myo: enable bluetooth adapter: %w", err)
	}

	klog.Infof("myo: scanning for %s", address)
	result, err := scanFor(ctx, adapter, address, scanTimeout)
	if err != nil {
		return nil, err
	}

	dev, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("myo: connect %s: %w", address, err)
	}
	klog.Infof("myo: connected to %s (rssi %d)", address, result.RSSI)

	b := &myoBand{address: address, device: dev}
	if err := b.subscribe(); err != nil {
		_ = dev.Disconnect()
		return nil, err
	}
	return b, nil
}

// scanFor runs a BLE scan until the address is seen, the timeout expires or
// ctx is cancelled.
func scanFor(ctx context.Context, adapter *bluetooth.Adapter, address string, timeout time.Duration) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		scanErr <- adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !strings.EqualFold(r.Address.String(), address) {
				return
			}
			select {
			case found <- r:
				_ = a.StopScan()
			default:
			}
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-found:
		<-scanErr
		return r, nil
	case err := <-scanErr:
		if err != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("myo: scan: %w", err)
		}
		return bluetooth.ScanResult{}, fmt.Errorf("myo: %w: scan ended before %s was seen", ErrDeviceNotFound, address)
	case <-timer.C:
		_ = adapter.StopScan()
		<-scanErr
		return bluetooth.ScanResult{}, fmt.Errorf("myo: %w: no advertisement from %s within %v", ErrDeviceNotFound, address, timeout)
	case <-ctx.Done():
		_ = adapter.StopScan()
		<-scanErr
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

// subscribe locates the command characteristic and enables notifications on
// every EMG characteristic the firmware exposes.
func (b *myoBand) subscribe() error {
	services, err := b.device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("myo: discover services: %w", err)
	}

	want := map[bluetooth.UUID]uint16{}
	for _, short := range []uint16{myoCommandChar, myoSmoothChar, myoEMGChar0, myoEMGChar1, myoEMGChar2, myoEMGChar3} {
		u, err := bluetooth.ParseUUID(myoUUID(short))
		if err != nil {
			return fmt.Errorf("myo: parse uuid %04x: %w", short, err)
		}
		want[u] = short
	}

	haveCommand := false
	emgChars := 0
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return fmt.Errorf("myo: discover characteristics: %w", err)
		}
		for _, c := range chars {
			short, ok := want[c.UUID()]
			if !ok {
				continue
			}
			if short == myoCommandChar {
				b.command = c
				haveCommand = true
				continue
			}
			if err := c.EnableNotifications(b.notificationHandler(short)); err != nil {
				return fmt.Errorf("myo: enable notifications on %04x: %w", short, err)
			}
			emgChars++
		}
	}

	if !haveCommand {
		return fmt.Errorf("myo: command characteristic %s not found", myoUUID(myoCommandChar))
	}
	if emgChars == 0 {
		return fmt.Errorf("myo: no EMG characteristics found")
	}
	klog.V(1).Infof("myo: subscribed to %d EMG characteristics", emgChars)
	return nil
}

func (b *myoBand) notificationHandler(short uint16) func([]byte) {
	if short == myoSmoothChar {
		return func(buf []byte) {
			s, err := decodeSmooth(buf, time.Now())
			if err != nil {
				klog.V(2).Infof("myo: %v", err)
				return
			}
			if h := b.handler.Load(); h != nil {
				(*h)(s)
			}
		}
	}
	return func(buf []byte) {
		pair, err := decodeEMGPair(buf, time.Now())
		if err != nil {
			klog.V(2).Infof("myo: %v", err)
			return
		}
		if h := b.handler.Load(); h != nil {
			(*h)(pair[0])
			(*h)(pair[1])
		}
	}
}

func (b *myoBand) write(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: name, Err: err}
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	// BlueZ still issues a write request when the characteristic supports one
	if _, err := b.command.WriteWithoutResponse(payload); err != nil {
		return &CommandError{Command: name, Err: err}
	}
	return nil
}

func (b *myoBand) SetEMGMode(ctx context.Context, mode EMGMode) error {
	klog.V(1).Infof("myo: set EMG mode %s", mode)
	return b.write(ctx, "set_mode", encodeSetMode(mode))
}

func (b *myoBand) SetSleepMode(ctx context.Context, mode SleepMode) error {
	klog.V(1).Infof("myo: set sleep mode %d", mode)
	return b.write(ctx, "set_sleep_mode", encodeSleepMode(mode))
}

func (b *myoBand) Vibrate(ctx context.Context, steps ...VibrationStep) error {
	if len(steps) == 0 {
		return b.write(ctx, "vibrate", encodeVibrate(1))
	}
	payload, err := encodeVibrate2(steps)
	if err != nil {
		return &CommandError{Command: "vibrate2", Err: err}
	}
	return b.write(ctx, "vibrate2", payload)
}

func (b *myoBand) OnEMG(h SampleHandler) {
	if h == nil {
		b.handler.Store(nil)
		return
	}
	b.handler.Store(&h)
}

// Close stops streaming and drops the radio link. It is safe to call twice.
func (b *myoBand) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.handler.Store(nil)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if merr := b.SetEMGMode(ctx, EMGModeNone); merr != nil {
			klog.Warningf("myo: stop streaming on close: %v", merr)
		}
		if derr := b.device.Disconnect(); derr != nil {
			err = fmt.Errorf("myo: disconnect %s: %w", b.address, derr)
			return
		}
		klog.Infof("myo: disconnected from %s", b.address)
	})
	return err
}
