// Package pipeline is the per-sample work of both modes: fusing a sample
// with a landmark frame into a training record, or turning it into a
// landmark datagram.
package pipeline

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/metrics"
)

// Stages reported in SampleError.
const (
	StageLabel   = "label"
	StageRecord  = "record"
	StageScale   = "scale"
	StagePredict = "predict"
	StageFormat  = "format"
)

// SampleError is a failure confined to one sample.
type SampleError struct {
	Stage string
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.Stage, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }

// guard runs fn and turns a panic into a SampleError.
func guard(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SampleError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &SampleError{Stage: stage, Err: err}
	}
	return nil
}

// report logs and counts a sample failure, then hands it to hook.
func report(prefix string, err *SampleError, hook func(error)) {
	metrics.SampleErrors.WithLabelValues(err.Stage).Inc()
	klog.Warningf("%s: skipping sample: %v", prefix, err)
	if hook != nil {
		hook(err)
	}
}
