package transport

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
)

// ConnectMQTT connects to broker and returns the client.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			klog.Warningf("mqtt: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	klog.Infof("mqtt: connected to %s as %s", broker, clientID)
	return client, nil
}

// MQTTPublisher publishes payloads to one topic at QoS 0.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher publishes to topic through client.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

// Send queues the payload. It only reports errors that are already known;
// it never waits for the broker.
func (p *MQTTPublisher) Send(payload string) error {
	return p.SendBytes([]byte(payload))
}

// SendBytes is Send for an encoded payload.
func (p *MQTTPublisher) SendBytes(payload []byte) error {
	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}
