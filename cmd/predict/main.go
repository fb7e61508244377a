// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/app"
	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/metrics"
)

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "myo_config.txt", "path to the configuration file")
	device := flag.String("device", "", "override DEVICE_KIND (myo, serial, mock)")
	address := flag.String("address", "", "override MYO_ADDRESS")
	target := flag.String("target", "", "override UDP_TARGET (host:port)")
	flag.Parse()
	defer klog.Flush()

	klog.Info("starting live landmark prediction")

	if err := config.InitGlobal(*configPath); err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	overrides := map[string]string{
		"DEVICE_KIND": *device,
		"MYO_ADDRESS": *address,
		"UDP_TARGET":  *target,
	}
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			klog.Fatalf("flag override: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("invalid configuration: %v", err)
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.Serve(cfg.MetricsAddr)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunInference(ctx, cfg); err != nil {
		klog.Flush()
		klog.Fatalf("fatal: %v", err)
	}
	klog.Info("Live prediction stopped")
}
