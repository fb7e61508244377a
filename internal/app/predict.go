package app

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/device"
	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/model"
	"github.com/relabs-tech/myo_landmarks/internal/pipeline"
	"github.com/relabs-tech/myo_landmarks/internal/stream"
	"github.com/relabs-tech/myo_landmarks/internal/transport"
)

type inferDeps struct {
	band      device.Band
	scaler    pipeline.Scaler
	predictor pipeline.Predictor
	sink      transport.Sink
	status    StatusReporter
	mode      device.EMGMode
	stream    stream.Options
	settle    [2]time.Duration
	// progress is the interval of streaming status events.
	progress time.Duration
}

// RunInference streams predicted landmarks to cfg.UDPTarget until ctx is
// cancelled.
func RunInference(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateInference(); err != nil {
		return err
	}
	mode, err := device.ParseEMGMode(cfg.EMGMode)
	if err != nil {
		return err
	}

	scaler, err := model.LoadScaler(cfg.ScalerPath)
	if err != nil {
		return err
	}
	net, err := model.LoadNetwork(cfg.ModelPath)
	if err != nil {
		return err
	}
	if net.InputSize() != emg.Channels || net.OutputSize() != landmarks.Values || len(scaler.Mean) != emg.Channels {
		return fmt.Errorf("%w: model maps %d to %d values and scaler takes %d, want %d to %d",
			model.ErrArtifactLoad, net.InputSize(), net.OutputSize(), len(scaler.Mean), emg.Channels, landmarks.Values)
	}
	klog.Infof("predict: model and scaler loaded (%d layers)", len(net.Layers))

	udp, err := transport.NewUDPSender(cfg.UDPTarget)
	if err != nil {
		return err
	}
	defer udp.Close()

	outs, cleanup := openOutputs(cfg, cfg.MQTTClientIDPredict)
	defer cleanup()
	sink := transport.Fanout{udp}
	if outs.mqtt != nil {
		sink = append(sink, transport.NewMQTTPublisher(outs.mqtt, cfg.TopicLandmarks))
	}
	outs.status.Report(Status{Mode: "predict", Phase: PhaseConnecting})

	band, err := device.Open(ctx, cfg)
	if err != nil {
		outs.status.Report(Status{Mode: "predict", Phase: PhaseFailed, Message: err.Error()})
		return err
	}
	defer func() {
		if err := band.Close(); err != nil {
			klog.Warningf("predict: closing band: %v", err)
		}
	}()

	return runInference(ctx, inferDeps{
		band:      band,
		scaler:    scaler,
		predictor: net,
		sink:      sink,
		status:    outs.status,
		mode:      mode,
		stream: stream.Options{
			QueueSize:    cfg.QueueSize,
			StallTimeout: cfg.StallTimeout,
			Label:        "predict",
		},
		settle:   [2]time.Duration{500 * time.Millisecond, 250 * time.Millisecond},
		progress: 5 * time.Second,
	})
}

// runInference is Connecting -> Streaming; only cancellation leaves
// Streaming, and that is a normal exit.
func runInference(ctx context.Context, d inferDeps) error {
	if err := device.Prepare(ctx, d.band, d.settle[0], d.settle[1]); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("prepare band: %w", err)
	}

	in := pipeline.NewInferencer(d.scaler, d.predictor, d.sink)
	opts := d.stream
	opts.OnStall = func() {
		p, _ := in.Counts()
		d.status.Report(Status{Mode: "predict", Phase: PhaseStalled, Processed: p})
	}
	src := stream.NewSource(d.band, opts)
	if err := src.Start(ctx, d.mode, in.Handle); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	klog.Infof("predict: band streaming %s EMG, listening for samples", d.mode)

	report := func(phase Phase) {
		p, skipped := in.Counts()
		d.status.Report(Status{
			Mode:      "predict",
			Phase:     phase,
			Processed: p,
			Dropped:   src.Stats().Dropped,
			Message:   fmt.Sprintf("%d samples skipped", skipped),
		})
	}
	report(PhaseStreaming)

	progress := d.progress
	if progress <= 0 {
		progress = 5 * time.Second
	}
	ticker := time.NewTicker(progress)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			report(PhaseStreaming)
		}
	}

	klog.Info("predict: terminating live prediction")
	tctx, cancel := teardownContext(ctx)
	defer cancel()
	err := src.Stop(tctx)
	report(PhaseDone)
	if err != nil {
		klog.Warningf("predict: stopping stream: %v", err)
	}
	return nil
}
