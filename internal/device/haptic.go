package device

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Haptic plays a vibration pattern on boards without a built-in motor.
type Haptic interface {
	Pulse(ctx context.Context, steps ...VibrationStep) error
}

// pwmFrequency drives small ERM coin motors.
const pwmFrequency = 1 * physic.KiloHertz

type gpioHaptic struct {
	name string
	pin  gpio.PinIO
}

// NewGPIOHaptic drives a vibration motor wired to the named GPIO pin.
func NewGPIOHaptic(pinName string) (Haptic, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("haptic: periph host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("haptic: GPIO pin %q not found", pinName)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("haptic: GPIO pin %q: %w", pinName, err)
	}
	return &gpioHaptic{name: pinName, pin: pin}, nil
}

// Pulse plays each step, using PWM for strength when the pin supports it.
func (h *gpioHaptic) Pulse(ctx context.Context, steps ...VibrationStep) error {
	defer h.pin.Out(gpio.Low)
	for _, s := range steps {
		duty := gpio.Duty(int64(gpio.DutyMax) * int64(s.Strength) / 255)
		if err := h.pin.PWM(duty, pwmFrequency); err != nil {
			if err := h.pin.Out(s.Strength > 0); err != nil {
				return fmt.Errorf("haptic: GPIO pin %q: %w", h.name, err)
			}
		}
		select {
		case <-time.After(s.Duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
