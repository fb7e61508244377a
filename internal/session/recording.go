// Package session holds the state owned by one collection run: the
// accumulating record sequence and the pose plan that drives it.
package session

import (
	"errors"
	"strconv"

	"github.com/relabs-tech/myo_landmarks/internal/emg"
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

// ErrNoDataCollected is returned by Finalize when nothing was recorded.
var ErrNoDataCollected = errors.New("session: no data collected")

// Record is one labeled training row.
type Record struct {
	ID        string
	Time      float64 // seconds since epoch
	Pose      string
	EMG       [emg.Channels]int32
	Landmarks landmarks.Frame
}

// Recording is the ordered record buffer of a collection run.
// It is written by a single consumer and read after streaming stopped;
// it does no locking of its own.
type Recording struct {
	records []Record
}

// NewRecording returns an empty recording with room for capacity records.
func NewRecording(capacity int) *Recording {
	return &Recording{records: make([]Record, 0, capacity)}
}

// Append adds r at the end of the recording.
func (r *Recording) Append(rec Record) {
	r.records = append(r.records, rec)
}

// Len returns the number of records so far.
func (r *Recording) Len() int { return len(r.records) }

// LastTime returns the time of the newest record, or 0 when empty.
func (r *Recording) LastTime() float64 {
	if len(r.records) == 0 {
		return 0
	}
	return r.records[len(r.records)-1].Time
}

// Finalize replaces the temporary ids with their position, "0".."N-1",
// and hands the records over. The recording must not be used afterwards.
func (r *Recording) Finalize() ([]Record, error) {
	if len(r.records) == 0 {
		return nil, ErrNoDataCollected
	}
	out := r.records
	r.records = nil
	for i := range out {
		out[i].ID = strconv.Itoa(i)
	}
	return out, nil
}

// PoseCount is the number of records captured for one pose.
type PoseCount struct {
	Pose  string `json:"pose"`
	Count int    `json:"count"`
}

// Summarize counts records per pose, in the order the poses first appear.
func Summarize(records []Record) []PoseCount {
	var out []PoseCount
	index := make(map[string]int)
	for _, rec := range records {
		i, ok := index[rec.Pose]
		if !ok {
			i = len(out)
			index[rec.Pose] = i
			out = append(out, PoseCount{Pose: rec.Pose})
		}
		out[i].Count++
	}
	return out
}
