package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
	"github.com/relabs-tech/myo_landmarks/internal/metrics"
	"github.com/relabs-tech/myo_landmarks/internal/session"
)

// LandmarkSource hands out landmark frames; *dataset.Pool implements it.
type LandmarkSource interface {
	Sample() landmarks.Frame
}

// Collector turns samples into records of one pose. Every sample gets a
// frame drawn independently from the pool; there is no attempt to match
// the frame to the moment the sample was taken.
type Collector struct {
	pool LandmarkSource
	rec  *session.Recording
	pose string

	// NewID returns the temporary id of a record.
	NewID func() string
	// OnError is called for every skipped sample.
	OnError func(error)

	errs int
}

// NewCollector appends records labeled pose to rec.
func NewCollector(pool LandmarkSource, rec *session.Recording, pose string) *Collector {
	return &Collector{
		pool:  pool,
		rec:   rec,
		pose:  pose,
		NewID: uuid.NewString,
	}
}

// Handle records one sample. It never fails the stream.
func (c *Collector) Handle(s emg.Sample) {
	var rec session.Record
	err := guard(StageLabel, func() error {
		rec.Landmarks = c.pool.Sample()
		return nil
	})
	if err == nil {
		err = guard(StageRecord, func() error {
			return c.build(&rec, s)
		})
	}
	if err != nil {
		c.errs++
		var se *SampleError
		errors.As(err, &se)
		report("collect", se, c.OnError)
		return
	}
	c.rec.Append(rec)
	metrics.RecordsAppended.Inc()
}

func (c *Collector) build(rec *session.Record, s emg.Sample) error {
	at := s.Time
	if at.IsZero() {
		at = time.Now()
	}
	ts := float64(at.UnixNano()) / 1e9
	if last := c.rec.LastTime(); ts < last {
		ts = last // host clock stepped back
	}
	rec.ID = c.NewID()
	rec.Time = ts
	rec.Pose = c.pose
	rec.EMG = s.Values
	return nil
}

// Errors returns how many samples were skipped.
func (c *Collector) Errors() int { return c.errs }
