package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/config"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/transport"
)

// RunConsoleMQTT prints the landmark and status topics until ctx ends.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required for the console")
	}
	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	landmarkToken := client.Subscribe(cfg.TopicLandmarks, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatLandmarkLine(msg.Payload())
		if err != nil {
			klog.Warningf("console: landmarks: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	landmarkToken.Wait()
	if landmarkToken.Error() != nil {
		return landmarkToken.Error()
	}
	klog.Infof("console: subscribed to %s", cfg.TopicLandmarks)

	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatStatusLine(msg.Payload())
		if err != nil {
			klog.Warningf("console: status: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	klog.Infof("console: subscribed to %s", cfg.TopicStatus)

	<-ctx.Done()
	klog.Info("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatLandmarkLine(payload []byte) (string, error) {
	values, err := landmarks.Parse(string(payload))
	if err != nil {
		return "", err
	}
	f, err := landmarks.FrameFrom(values)
	if err != nil {
		return "", err
	}
	w, idx := f.Joint(0), f.Joint(8)
	return fmt.Sprintf("[LMK]  wrist=(%7.4f %7.4f %7.4f)  index_tip=(%7.4f %7.4f %7.4f)",
		w[0], w[1], w[2], idx[0], idx[1], idx[2]), nil
}

func formatStatusLine(payload []byte) (string, error) {
	var s Status
	if err := json.Unmarshal(payload, &s); err != nil {
		return "", err
	}
	line := fmt.Sprintf("[%s] %-13s records=%d", s.Mode, s.Phase, s.Records)
	if s.Pose != "" {
		line += fmt.Sprintf(" pose=%q rep=%d/%d", s.Pose, s.Repetition, s.Repetitions)
	}
	if s.Processed > 0 {
		line += fmt.Sprintf(" processed=%d", s.Processed)
	}
	if s.Message != "" {
		line += " " + s.Message
	}
	return line, nil
}
