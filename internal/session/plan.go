package session

import (
	"time"

	"github.com/relabs-tech/myo_landmarks/internal/config"
)

// Plan is the timing of one pose: a countdown, a collection window and a
// rest, repeated Repetitions times, then a pause before the next pose.
type Plan struct {
	Repetitions    int
	Countdown      time.Duration
	Collect        time.Duration
	RepetitionRest time.Duration
	PoseRest       time.Duration
	// ModeReset is the pause after switching streaming off before a
	// repetition starts.
	ModeReset time.Duration
	// SettleBefore and SettleAfter surround the never-sleep command right
	// after connecting.
	SettleBefore time.Duration
	SettleAfter  time.Duration
}

// PlanFromConfig builds the plan used by the collect command.
func PlanFromConfig(cfg *config.Config) Plan {
	return Plan{
		Repetitions:    cfg.Repetitions,
		Countdown:      cfg.Countdown,
		Collect:        cfg.CollectionTime,
		RepetitionRest: cfg.RepetitionRest,
		PoseRest:       cfg.PoseRest,
		ModeReset:      cfg.ModeReset,
		SettleBefore:   500 * time.Millisecond,
		SettleAfter:    250 * time.Millisecond,
	}
}

// PoseDuration is the wall time one pose takes with this plan.
func (p Plan) PoseDuration() time.Duration {
	per := p.ModeReset + p.Countdown + p.Collect + p.RepetitionRest
	return time.Duration(p.Repetitions)*per + p.PoseRest
}
