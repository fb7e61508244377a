package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/metrics"
)

// Scaler maps raw features to model input.
type Scaler interface {
	Transform(x []float64) ([]float64, error)
}

// Predictor maps scaled features to 63 landmark coordinates.
type Predictor interface {
	Predict(x []float64) ([]float64, error)
}

// Sender delivers one payload without waiting for the receiver.
type Sender interface {
	Send(payload string) error
}

// Inferencer runs scale, predict, format and send for each sample.
type Inferencer struct {
	scaler    Scaler
	predictor Predictor
	out       Sender

	// OnError is called for every skipped sample.
	OnError func(error)

	processed atomic.Uint64
	skipped   atomic.Uint64
}

// NewInferencer wires the stages. out may fan out to several sinks.
func NewInferencer(s Scaler, p Predictor, out Sender) *Inferencer {
	return &Inferencer{scaler: s, predictor: p, out: out}
}

// Process turns one sample into its datagram payload.
func (in *Inferencer) Process(s emg.Sample) (string, error) {
	var scaled, coords []float64
	err := guard(StageScale, func() (err error) {
		scaled, err = in.scaler.Transform(s.Features())
		return err
	})
	if err != nil {
		return "", err
	}
	err = guard(StagePredict, func() (err error) {
		coords, err = in.predictor.Predict(scaled)
		return err
	})
	if err != nil {
		return "", err
	}
	var payload string
	err = guard(StageFormat, func() error {
		if len(coords) != landmarks.Values {
			return fmt.Errorf("model returned %d values, want %d", len(coords), landmarks.Values)
		}
		payload = landmarks.Format(coords)
		return nil
	})
	return payload, err
}

// Handle processes and sends one sample. A failed sample is logged,
// counted and skipped; a lost datagram is not an error here.
func (in *Inferencer) Handle(s emg.Sample) {
	start := time.Now()
	payload, err := in.Process(s)
	metrics.InferenceSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		in.skipped.Add(1)
		var se *SampleError
		errors.As(err, &se)
		report("predict", se, in.OnError)
		return
	}
	in.processed.Add(1)
	klog.V(2).Infof("predict: %s", payload)
	if err := in.out.Send(payload); err != nil {
		klog.V(1).Infof("predict: datagram dropped: %v", err)
	}
}

// Counts returns processed and skipped sample totals. Safe to call while
// samples are being handled.
func (in *Inferencer) Counts() (processed, skipped uint64) {
	return in.processed.Load(), in.skipped.Load()
}
