// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/dataset"
	"github.com/relabs-tech/myo_landmarks/internal/device"
	"github.com/relabs-tech/myo_landmarks/internal/pipeline"
	"github.com/relabs-tech/myo_landmarks/internal/session"
	"github.com/relabs-tech/myo_landmarks/internal/stream"
)

// collectDeps is everything the collection loop touches.
type collectDeps struct {
	band    device.Band
	pool    pipeline.LandmarkSource
	prompt  Prompt
	out     io.Writer
	status  StatusReporter
	plan    session.Plan
	mode    device.EMGMode
	stream  stream.Options
	save    func([]session.Record) error
	newID   func() string
	started time.Time
}

// RunCollection runs an interactive collection session and writes the
// labeled records to cfg.OutputPath.
func RunCollection(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateCollection(); err != nil {
		return err
	}
	mode, err := device.ParseEMGMode(cfg.EMGMode)
	if err != nil {
		return err
	}

	// the pool is a precondition; no need to touch the band without it
	pool, err := dataset.LoadPool(cfg.LandmarksDatasetPath, cfg.RandomSeed)
	if err != nil {
		return err
	}

	outs, cleanup := openOutputs(cfg, cfg.MQTTClientIDCollect)
	defer cleanup()
	reporter := outs.status
	reporter.Report(Status{Mode: "collect", Phase: PhaseConnecting})

	band, err := device.Open(ctx, cfg)
	if err != nil {
		reporter.Report(Status{Mode: "collect", Phase: PhaseFailed, Message: err.Error()})
		return err
	}
	defer func() {
		if err := band.Close(); err != nil {
			klog.Warningf("collect: closing band: %v", err)
		}
	}()

	started := time.Now()
	outputPath := expandOutputPath(cfg.OutputPath, started)
	deps := collectDeps{
		band:   band,
		pool:   pool,
		prompt: NewLinePrompt(os.Stdin, os.Stdout),
		out:    os.Stdout,
		status: reporter,
		plan:   session.PlanFromConfig(cfg),
		mode:   mode,
		stream: stream.Options{
			QueueSize:    cfg.QueueSize,
			StallTimeout: cfg.StallTimeout,
			Label:        "collect",
		},
		save: func(records []session.Record) error {
			if err := dataset.WriteRecords(outputPath, records); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "\nAll landmark data saved to %s\n", outputPath)
			return nil
		},
		started: started,
	}
	err = runCollection(ctx, deps)
	if err != nil && !errors.Is(err, context.Canceled) {
		reporter.Report(Status{Mode: "collect", Phase: PhaseFailed, Message: err.Error()})
	}
	return err
}

func runCollection(ctx context.Context, d collectDeps) error {
	if err := device.Prepare(ctx, d.band, d.plan.SettleBefore, d.plan.SettleAfter); err != nil {
		return fmt.Errorf("prepare band: %w", err)
	}
	fmt.Fprintln(d.out, "Starting landmark data collection session...")

	rec := session.NewRecording(1024)
	opts := d.stream
	opts.OnStall = func() {
		d.status.Report(Status{Mode: "collect", Phase: PhaseStalled, Message: "EMG stream stalled, recovering"})
	}
	src := stream.NewSource(d.band, opts)
	defer func() {
		tctx, cancel := teardownContext(ctx)
		defer cancel()
		if err := src.Stop(tctx); err != nil {
			klog.Warningf("collect: stopping stream: %v", err)
		}
	}()

	for {
		d.status.Report(Status{Mode: "collect", Phase: PhaseAwaitingPose, Records: rec.Len()})
		pose, ok, err := d.prompt.NextPose(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fmt.Fprintf(d.out, "Collecting EMG data for pose '%s' using random landmark coordinates from the dataset.\n", pose)
		fmt.Fprintf(d.out, "This pose takes about %v.\n", d.plan.PoseDuration())

		for rep := 1; rep <= d.plan.Repetitions; rep++ {
			st := Status{Mode: "collect", Pose: pose, Repetition: rep, Repetitions: d.plan.Repetitions}
			fmt.Fprintf(d.out, "\nPerform pose '%s', repetition %d/%d\n", pose, rep, d.plan.Repetitions)

			if err := collectRepetition(ctx, d, src, rec, st); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				klog.Errorf("collect: pose %q repetition %d: %v", pose, rep, err)
				continue
			}

			st.Phase, st.Records = PhaseResting, rec.Len()
			d.status.Report(st)
			fmt.Fprintf(d.out, "\nTake a short break - %v until next repetition\n", d.plan.RepetitionRest)
			if err := sleep(ctx, d.plan.RepetitionRest); err != nil {
				return err
			}
		}

		d.status.Report(Status{Mode: "collect", Phase: PhasePoseRest, Pose: pose, Records: rec.Len()})
		fmt.Fprintf(d.out, "\nTake a break - %v before next pose\n", d.plan.PoseRest)
		if err := sleep(ctx, d.plan.PoseRest); err != nil {
			return err
		}
	}

	d.status.Report(Status{Mode: "collect", Phase: PhaseFinalizing, Records: rec.Len()})
	records, err := rec.Finalize()
	if err != nil {
		return err
	}
	if err := d.save(records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}

	summary := session.Summarize(records)
	fmt.Fprintf(d.out, "Total samples collected: %d\n\nSummary of collected data:\n", len(records))
	for _, pc := range summary {
		fmt.Fprintf(d.out, "%s: %d samples\n", pc.Pose, pc.Count)
	}
	d.status.Report(Status{
		Mode:    "collect",
		Phase:   PhaseDone,
		Records: len(records),
		Dropped: src.Stats().Dropped,
		Summary: summary,
		Message: fmt.Sprintf("session took %v", time.Since(d.started).Round(time.Second)),
	})
	return nil
}

// collectRepetition resets the stream, counts down, records one window
// and signals its end with a vibration.
func collectRepetition(ctx context.Context, d collectDeps, src *stream.Source, rec *session.Recording, st Status) error {
	if err := d.band.SetEMGMode(ctx, device.EMGModeNone); err != nil {
		return fmt.Errorf("reset mode: %w", err)
	}
	if err := sleep(ctx, d.plan.ModeReset); err != nil {
		return err
	}

	st.Phase, st.Records = PhasePreparing, rec.Len()
	d.status.Report(st)
	fmt.Fprintf(d.out, "\nPreparing to collect data for pose '%s'...\nGet ready in %v...\n", st.Pose, d.plan.Countdown)
	if err := sleep(ctx, d.plan.Countdown); err != nil {
		return err
	}

	collector := pipeline.NewCollector(d.pool, rec, st.Pose)
	if d.newID != nil {
		collector.NewID = d.newID
	}
	st.Phase = PhaseCollecting
	d.status.Report(st)
	fmt.Fprintf(d.out, "START - Hold the '%s' pose\n", st.Pose)

	before := rec.Len()
	if err := src.Start(ctx, d.mode, collector.Handle); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	waitErr := sleep(ctx, d.plan.Collect)

	tctx, cancel := teardownContext(ctx)
	stopErr := src.Stop(tctx)
	cancel()
	if waitErr != nil {
		return waitErr
	}
	// rec and the collector are only read after Stop returned
	fmt.Fprintf(d.out, "DONE - Data for pose '%s' collected (%d samples)\n", st.Pose, rec.Len()-before)
	if n := collector.Errors(); n > 0 {
		fmt.Fprintf(d.out, "%d samples skipped\n", n)
		klog.Warningf("collect: pose %q repetition %d: %d samples skipped", st.Pose, st.Repetition, n)
	}
	if stopErr != nil {
		return fmt.Errorf("stop stream: %w", stopErr)
	}

	if err := d.band.Vibrate(ctx, device.FeedbackPattern...); err != nil {
		return fmt.Errorf("vibrate: %w", err)
	}
	return nil
}
