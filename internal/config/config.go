// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Device backends understood by DEVICE_KIND.
const (
	DeviceMyo    = "myo"
	DeviceSerial = "serial"
	DeviceMock   = "mock"
)

// DisplayDefaultAddr is the I2C address of the SSD1306 panel.
const DisplayDefaultAddr = 0x3C

// Config holds all application configuration values.
type Config struct {
	// Device
	DeviceKind       string
	MyoAddress       string
	ScanTimeout      time.Duration
	EMGMode          string // "smooth", "filtered" or "raw"
	SerialPort       string
	SerialBaudRate   uint
	HapticGPIOPin    string
	MockSampleRateHz int

	// Stream
	QueueSize    int
	StallTimeout time.Duration

	// Collection
	LandmarksDatasetPath string
	OutputPath           string // may contain {time}
	Repetitions          int
	CollectionTime       time.Duration
	Countdown            time.Duration
	RepetitionRest       time.Duration
	PoseRest             time.Duration
	ModeReset            time.Duration
	RandomSeed           uint64 // 0 means time based

	// Inference
	ModelPath  string
	ScalerPath string
	UDPTarget  string

	// Training
	TrainDataDir      string
	TrainTestFraction float64
	TrainRidge        float64
	TrainSeed         uint64
	TrainReportPath   string // empty disables the error plot

	// MQTT (empty broker disables publishing)
	MQTTBroker          string
	MQTTClientIDCollect string
	MQTTClientIDPredict string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	TopicLandmarks      string
	TopicStatus         string

	// Display
	DisplayEnabled bool
	DisplayI2CBus  string
	DisplayI2CAddr uint16

	// Observability
	MetricsAddr   string
	WebServerPort int
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		DeviceKind:       DeviceMyo,
		ScanTimeout:      10 * time.Second,
		EMGMode:          "smooth",
		SerialBaudRate:   115200,
		MockSampleRateHz: 50,

		QueueSize:    1024,
		StallTimeout: 2 * time.Second,

		OutputPath:     "emg_landmarks.csv",
		Repetitions:    5,
		CollectionTime: 5 * time.Second,
		Countdown:      2 * time.Second,
		RepetitionRest: 5 * time.Second,
		PoseRest:       5 * time.Second,
		ModeReset:      500 * time.Millisecond,

		UDPTarget: "127.0.0.1:5051",

		TrainTestFraction: 0.2,
		TrainRidge:        0.001,
		TrainSeed:         42,

		MQTTClientIDCollect: "myo-collect",
		MQTTClientIDPredict: "myo-predict",
		MQTTClientIDWeb:     "myo-web",
		MQTTClientIDConsole: "myo-console",
		TopicLandmarks:      "myo/landmarks",
		TopicStatus:         "myo/status",

		DisplayI2CAddr: DisplayDefaultAddr,

		WebServerPort: 8080,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Device
	case "DEVICE_KIND":
		c.DeviceKind = strings.ToLower(value)
	case "MYO_ADDRESS":
		c.MyoAddress = value
	case "SCAN_TIMEOUT_MS":
		c.ScanTimeout, err = parseMillis(key, value)
	case "EMG_MODE":
		c.EMGMode = strings.ToLower(value)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, perr := strconv.ParseUint(value, 10, 32)
		if perr != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, perr)
		}
		c.SerialBaudRate = uint(rate)
	case "HAPTIC_GPIO_PIN":
		c.HapticGPIOPin = value
	case "MOCK_SAMPLE_RATE_HZ":
		c.MockSampleRateHz, err = parsePositiveInt(key, value)

	// Stream
	case "QUEUE_SIZE":
		c.QueueSize, err = parsePositiveInt(key, value)
	case "STALL_TIMEOUT_MS":
		c.StallTimeout, err = parseMillis(key, value)

	// Collection
	case "LANDMARKS_DATASET_PATH":
		c.LandmarksDatasetPath = value
	case "OUTPUT_PATH":
		c.OutputPath = value
	case "REPETITIONS":
		c.Repetitions, err = parsePositiveInt(key, value)
	case "COLLECTION_TIME_MS":
		c.CollectionTime, err = parseMillis(key, value)
	case "COUNTDOWN_MS":
		c.Countdown, err = parseMillis(key, value)
	case "REPETITION_REST_MS":
		c.RepetitionRest, err = parseMillis(key, value)
	case "POSE_REST_MS":
		c.PoseRest, err = parseMillis(key, value)
	case "MODE_RESET_MS":
		c.ModeReset, err = parseMillis(key, value)
	case "RANDOM_SEED":
		seed, perr := strconv.ParseUint(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid RANDOM_SEED %q: %w", value, perr)
		}
		c.RandomSeed = seed

	// Inference
	case "MODEL_PATH":
		c.ModelPath = value
	case "SCALER_PATH":
		c.ScalerPath = value
	case "UDP_TARGET":
		c.UDPTarget = value

	// Training
	case "TRAIN_DATA_DIR":
		c.TrainDataDir = value
	case "TRAIN_TEST_FRACTION":
		frac, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid TRAIN_TEST_FRACTION %q: %w", value, perr)
		}
		if frac <= 0 || frac >= 1 {
			return fmt.Errorf("TRAIN_TEST_FRACTION must be in (0, 1), got %v", frac)
		}
		c.TrainTestFraction = frac
	case "TRAIN_RIDGE":
		ridge, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid TRAIN_RIDGE %q: %w", value, perr)
		}
		if ridge < 0 {
			return fmt.Errorf("TRAIN_RIDGE must be >= 0, got %v", ridge)
		}
		c.TrainRidge = ridge
	case "TRAIN_SEED":
		seed, perr := strconv.ParseUint(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid TRAIN_SEED %q: %w", value, perr)
		}
		c.TrainSeed = seed
	case "TRAIN_REPORT_PATH":
		c.TrainReportPath = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_COLLECT":
		c.MQTTClientIDCollect = value
	case "MQTT_CLIENT_ID_PREDICT":
		c.MQTTClientIDPredict = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_LANDMARKS":
		c.TopicLandmarks = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Display
	case "DISPLAY_ENABLED":
		enabled, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, perr)
		}
		c.DisplayEnabled = enabled
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)

	// Observability
	case "METRICS_ADDR":
		c.MetricsAddr = value
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parsePositiveInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseMillis(key, value string) (time.Duration, error) {
	ms, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parsePositiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, n)
	}
	return n, nil
}

// Set applies one KEY=VALUE pair the way the file parser does. Mains use it
// for command-line overrides and call Validate afterwards.
func (c *Config) Set(key, value string) error {
	return c.setValue(key, strings.TrimSpace(value))
}

// Validate checks the fields every binary depends on.
func (c *Config) Validate() error {
	switch c.DeviceKind {
	case DeviceMyo, DeviceSerial, DeviceMock:
	default:
		return fmt.Errorf("DEVICE_KIND must be one of myo, serial, mock, got %q", c.DeviceKind)
	}
	switch c.EMGMode {
	case "smooth", "filtered", "raw":
	default:
		return fmt.Errorf("EMG_MODE must be one of smooth, filtered, raw, got %q", c.EMGMode)
	}
	// the ssd1306 driver only talks to the panel at its default address
	if c.DisplayEnabled && c.DisplayI2CAddr != DisplayDefaultAddr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, got 0x%02X", DisplayDefaultAddr, c.DisplayI2CAddr)
	}
	return nil
}

// ValidateDevice checks the keys the selected device backend needs.
func (c *Config) ValidateDevice() error {
	switch c.DeviceKind {
	case DeviceMyo:
		if c.MyoAddress == "" {
			return fmt.Errorf("MYO_ADDRESS is required for DEVICE_KIND=myo")
		}
	case DeviceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for DEVICE_KIND=serial")
		}
	}
	return nil
}

// ValidateCollection checks the keys the collection binary needs.
func (c *Config) ValidateCollection() error {
	if err := c.ValidateDevice(); err != nil {
		return err
	}
	if c.LandmarksDatasetPath == "" {
		return fmt.Errorf("LANDMARKS_DATASET_PATH is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	return nil
}

// ValidateInference checks the keys the prediction binary needs.
func (c *Config) ValidateInference() error {
	if err := c.ValidateDevice(); err != nil {
		return err
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if c.ScalerPath == "" {
		return fmt.Errorf("SCALER_PATH is required")
	}
	if c.UDPTarget == "" {
		return fmt.Errorf("UDP_TARGET is required")
	}
	return nil
}

// ValidateTraining checks the keys the trainer needs.
func (c *Config) ValidateTraining() error {
	if c.TrainDataDir == "" {
		return fmt.Errorf("TRAIN_DATA_DIR is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if c.ScalerPath == "" {
		return fmt.Errorf("SCALER_PATH is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return that first result.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
