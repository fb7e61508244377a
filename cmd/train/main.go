package main

import (
	"flag"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/app"
	"github.com/relabs-tech/myo_landmarks/internal/config"
)

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "myo_config.txt", "path to the configuration file")
	dataDir := flag.String("data", "", "override TRAIN_DATA_DIR")
	report := flag.String("report", "", "override TRAIN_REPORT_PATH (PNG, SVG or PDF)")
	flag.Parse()
	defer klog.Flush()

	if err := config.InitGlobal(*configPath); err != nil {
		klog.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	overrides := map[string]string{
		"TRAIN_DATA_DIR":    *dataDir,
		"TRAIN_REPORT_PATH": *report,
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

	res, err := app.RunTraining(cfg)
	if err != nil {
		klog.Flush()
		klog.Fatalf("fatal: %v", err)
	}
	klog.Infof("training done: test MSE %.6f over %d held-out rows", res.TestMSE, res.TestRows)
}
