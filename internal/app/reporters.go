package app

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/transport"
)

// outputs are the optional publishers of a run. MQTT and the display are
// extras: failing to reach them is logged and the run goes on without.
type outputs struct {
	status StatusReporter
	mqtt   mqtt.Client
}

func openOutputs(cfg *config.Config, clientID string) (*outputs, func()) {
	reporters := MultiReporter{LogReporter{}}
	var closers []func()
	o := &outputs{}

	if cfg.MQTTBroker != "" {
		client, err := transport.ConnectMQTT(cfg.MQTTBroker, clientID)
		if err != nil {
			klog.Warningf("mqtt: publishing disabled: %v", err)
		} else {
			o.mqtt = client
			reporters = append(reporters, NewMQTTStatusReporter(transport.NewMQTTPublisher(client, cfg.TopicStatus)))
			closers = append(closers, func() { client.Disconnect(250) })
		}
	}
	if cfg.DisplayEnabled {
		d, err := NewDisplayReporter(cfg.DisplayI2CBus)
		if err != nil {
			klog.Warningf("display: disabled: %v", err)
		} else {
			reporters = append(reporters, d)
			closers = append(closers, func() { d.Close() })
		}
	}
	o.status = reporters

	return o, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
