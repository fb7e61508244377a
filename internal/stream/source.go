// Package stream decouples the band's notification callback from the
// per-sample pipeline. The callback only enqueues; a single consumer per
// streaming epoch drains the queue in arrival order.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/device"
	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/metrics"
)

// ErrAlreadyStreaming is returned by Start when the previous epoch was not stopped.
var ErrAlreadyStreaming = errors.New("stream: already streaming")

// Handler processes one sample. It runs on the consumer goroutine.
type Handler func(emg.Sample)

// Options tunes a Source.
type Options struct {
	// QueueSize bounds samples waiting for the consumer. Samples arriving
	// while the queue is full are dropped.
	QueueSize int
	// StallTimeout is how long an active stream may stay silent before the
	// source re-applies the never-sleep policy and the streaming mode.
	// Zero disables stall detection.
	StallTimeout time.Duration
	// Label tags metrics, e.g. "collect" or "predict".
	Label string
	// OnStall, if set, is called on the consumer goroutine after each stall.
	OnStall func()
}

// Stats are counters over the life of a Source.
type Stats struct {
	Received uint64
	Dropped  uint64
	Stalls   uint64
}

// Source owns the streaming epochs of one band.
type Source struct {
	band device.Band
	opts Options

	mu     sync.Mutex
	active *epoch

	received atomic.Uint64
	dropped  atomic.Uint64
	stalls   atomic.Uint64
}

type epoch struct {
	mode    device.EMGMode
	queue   chan emg.Sample
	stop    chan struct{}
	done    chan struct{}

	// mu orders push against Stop: once stopped is set under the write
	// lock no sample can enter the queue behind the consumer's drain.
	mu      sync.RWMutex
	stopped bool
}

func (ep *epoch) markStopped() {
	ep.mu.Lock()
	ep.stopped = true
	ep.mu.Unlock()
	close(ep.stop)
}

// NewSource wraps band. Nothing streams until Start.
func NewSource(band device.Band, opts Options) *Source {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Label == "" {
		opts.Label = "stream"
	}
	return &Source{band: band, opts: opts}
}

// Start registers h for a new epoch and switches the band into mode.
// Stop must be called before the next Start.
func (s *Source) Start(ctx context.Context, mode device.EMGMode, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return ErrAlreadyStreaming
	}

	ep := &epoch{
		mode:  mode,
		queue: make(chan emg.Sample, s.opts.QueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.band.OnEMG(func(sample emg.Sample) { s.push(ep, sample) })
	go s.consume(ctx, ep, h)

	if err := s.band.SetEMGMode(ctx, mode); err != nil {
		s.band.OnEMG(nil)
		ep.markStopped()
		<-ep.done
		return err
	}
	s.active = ep
	return nil
}

// push runs on the band's I/O context and never blocks.
func (s *Source) push(ep *epoch, sample emg.Sample) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	if ep.stopped {
		return // late sample of a finished epoch
	}
	select {
	case ep.queue <- sample:
		s.received.Add(1)
		metrics.SamplesReceived.WithLabelValues(s.opts.Label).Inc()
	default:
		s.drop()
	}
}

func (s *Source) drop() {
	if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
		klog.Warningf("stream: dropped %d samples so far (queue size %d)", n, s.opts.QueueSize)
	}
	metrics.SamplesDropped.Inc()
}

func (s *Source) consume(ctx context.Context, ep *epoch, h Handler) {
	defer close(ep.done)

	var stall <-chan time.Time
	var timer *time.Timer
	if s.opts.StallTimeout > 0 {
		timer = time.NewTimer(s.opts.StallTimeout)
		defer timer.Stop()
		stall = timer.C
	}

	for {
		select {
		case sample := <-ep.queue:
			h(sample)
			if timer != nil {
				timer.Reset(s.opts.StallTimeout)
			}
		case <-stall:
			s.recoverStall(ctx, ep)
			timer.Reset(s.opts.StallTimeout)
		case <-ep.stop:
			// deliver what arrived before Stop
			for {
				select {
				case sample := <-ep.queue:
					h(sample)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// recoverStall treats silence as a recoverable condition: the band most
// likely fell asleep or lost the mode, so both are re-applied.
func (s *Source) recoverStall(ctx context.Context, ep *epoch) {
	n := s.stalls.Add(1)
	metrics.StreamStalls.Inc()
	klog.Warningf("stream: no EMG for %v (stall %d), re-applying sleep policy and %s mode", s.opts.StallTimeout, n, ep.mode)

	if err := s.band.SetSleepMode(ctx, device.SleepNever); err != nil {
		klog.Errorf("stream: stall recovery: %v", err)
	}
	if err := s.band.SetEMGMode(ctx, ep.mode); err != nil {
		klog.Errorf("stream: stall recovery: %v", err)
	}
	if s.opts.OnStall != nil {
		s.opts.OnStall()
	}
}

// Stop ends the current epoch: the consumer finishes every sample queued so
// far and exits, then the band stops streaming and the callback is detached.
// After Stop returns no handler of that epoch runs again.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	ep := s.active
	s.active = nil
	s.mu.Unlock()
	if ep == nil {
		return nil
	}

	ep.markStopped()
	<-ep.done

	err := s.band.SetEMGMode(ctx, device.EMGModeNone)
	s.band.OnEMG(nil)
	return err
}

// Streaming reports whether an epoch is active.
func (s *Source) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Stats returns lifetime counters.
func (s *Source) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Dropped:  s.dropped.Load(),
		Stalls:   s.stalls.Load(),
	}
}
