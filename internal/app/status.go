package app

import (
	"encoding/json"
	"time"

	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/session"
	"github.com/relabs-tech/myo_landmarks/internal/transport"
)

// Phase is a state of the collection or inference run.
type Phase string

const (
	PhaseConnecting   Phase = "connecting"
	PhaseAwaitingPose Phase = "awaiting_pose"
	PhasePreparing    Phase = "preparing"
	PhaseCollecting   Phase = "collecting"
	PhaseResting      Phase = "resting"
	PhasePoseRest     Phase = "pose_rest"
	PhaseFinalizing   Phase = "finalizing"
	PhaseStreaming    Phase = "streaming"
	PhaseStalled      Phase = "stalled"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Status is one progress event. It is published as JSON on the status topic.
type Status struct {
	Time        time.Time           `json:"time"`
	Mode        string              `json:"mode"`
	Phase       Phase               `json:"phase"`
	Pose        string              `json:"pose,omitempty"`
	Repetition  int                 `json:"repetition,omitempty"`
	Repetitions int                 `json:"repetitions,omitempty"`
	Records     int                 `json:"records"`
	Processed   uint64              `json:"processed,omitempty"`
	Dropped     uint64              `json:"dropped,omitempty"`
	Summary     []session.PoseCount `json:"summary,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// StatusReporter receives progress events from the run loops.
type StatusReporter interface {
	Report(Status)
}

// LogReporter writes events to the log.
type LogReporter struct{}

func (LogReporter) Report(s Status) {
	switch {
	case s.Phase == PhaseFailed:
		klog.Errorf("%s: %s", s.Mode, s.Message)
	case s.Pose != "" && s.Repetition > 0:
		klog.Infof("%s: %s pose=%q rep=%d/%d records=%d", s.Mode, s.Phase, s.Pose, s.Repetition, s.Repetitions, s.Records)
	default:
		klog.V(1).Infof("%s: %s records=%d processed=%d dropped=%d", s.Mode, s.Phase, s.Records, s.Processed, s.Dropped)
	}
}

// MQTTStatusReporter publishes events as JSON.
type MQTTStatusReporter struct {
	pub *transport.MQTTPublisher
}

// NewMQTTStatusReporter publishes through pub.
func NewMQTTStatusReporter(pub *transport.MQTTPublisher) *MQTTStatusReporter {
	return &MQTTStatusReporter{pub: pub}
}

func (r *MQTTStatusReporter) Report(s Status) {
	payload, err := json.Marshal(s)
	if err != nil {
		klog.Errorf("status: json marshal error: %v", err)
		return
	}
	if err := r.pub.SendBytes(payload); err != nil {
		klog.V(1).Infof("status: publish failed: %v", err)
	}
}

// MultiReporter forwards each event to every reporter.
type MultiReporter []StatusReporter

func (m MultiReporter) Report(s Status) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}
	for _, r := range m {
		r.Report(s)
	}
}
