package app

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"k8s.io/klog/v2"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/myo_landmarks/internal/config"
)

// DisplayReporter shows the run status on a 128x64 SSD1306 OLED.
type DisplayReporter struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// NewDisplayReporter opens the display on the given I2C bus ("" picks the
// first one). The panel answers at config.DisplayDefaultAddr.
func NewDisplayReporter(busName string) (*DisplayReporter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	klog.Infof("display: initialized at 0x%02X", config.DisplayDefaultAddr)

	d := &DisplayReporter{bus: bus, dev: dev}
	if err := d.draw([]string{"Myo landmarks", "", "Connecting..."}); err != nil {
		klog.Warningf("display: error showing splash: %v", err)
	}
	return d, nil
}

// Report redraws the screen with s.
func (d *DisplayReporter) Report(s Status) {
	if err := d.draw(statusLines(s)); err != nil {
		klog.Warningf("display: error updating: %v", err)
	}
}

// Close blanks the screen and releases the bus.
func (d *DisplayReporter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Halt(); err != nil {
		klog.Warningf("display: halt: %v", err)
	}
	return d.bus.Close()
}

func (d *DisplayReporter) draw(lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Draw(d.dev.Bounds(), renderLines(lines), image.Point{})
}

// renderLines draws up to four 7x13 text lines on a blank frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

// statusLines lays out s in 18 columns, the width of the 7x13 font on
// a 128 pixel panel.
func statusLines(s Status) []string {
	clip := func(v string) string {
		if r := []rune(v); len(r) > 18 {
			return string(r[:18])
		}
		return v
	}
	switch s.Phase {
	case PhaseAwaitingPose:
		return []string{"Enter pose name", clip(fmt.Sprintf("records: %d", s.Records))}
	case PhasePreparing, PhaseCollecting, PhaseResting:
		label := map[Phase]string{
			PhasePreparing:  "GET READY",
			PhaseCollecting: "HOLD POSE",
			PhaseResting:    "REST",
		}[s.Phase]
		return []string{
			label,
			clip(s.Pose),
			fmt.Sprintf("rep %d/%d", s.Repetition, s.Repetitions),
			clip(fmt.Sprintf("records: %d", s.Records)),
		}
	case PhasePoseRest:
		return []string{"POSE DONE", clip(s.Pose), "next pose soon"}
	case PhaseStreaming, PhaseStalled:
		return []string{
			clip(string(s.Phase)),
			clip(fmt.Sprintf("sent: %d", s.Processed)),
			clip(fmt.Sprintf("dropped: %d", s.Dropped)),
		}
	case PhaseDone:
		lines := []string{"DONE", clip(fmt.Sprintf("records: %d", s.Records))}
		for _, pc := range s.Summary {
			lines = append(lines, clip(fmt.Sprintf("%s: %d", pc.Pose, pc.Count)))
		}
		return lines
	case PhaseFailed:
		return []string{"ERROR", clip(s.Message)}
	}
	return []string{clip(string(s.Phase))}
}
