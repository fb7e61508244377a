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
)

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "myo_config.txt", "path to the configuration file")
	flag.Parse()
	defer klog.Flush()

	klog.Info("starting myo landmark console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsoleMQTT(ctx, config.Get(), os.Stdout); err != nil {
		klog.Flush()
		klog.Fatalf("fatal: %v", err)
	}
}
