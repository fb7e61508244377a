package emg

import (
	"fmt"
	"time"
)

// Channels is the number of electrodes on the band.
const Channels = 8

// Sample represents one EMG reading from the band.
type Sample struct {
	Time   time.Time       `json:"time"`   // arrival time on the host
	Values [Channels]int32 `json:"values"` // s1..s8
}

// Features returns the channel values as a float vector for scaling.
func (s Sample) Features() []float64 {
	out := make([]float64, Channels)
	for i, v := range s.Values {
		out[i] = float64(v)
	}
	return out
}

// ColumnNames returns the CSV column names of the channels, s1..s8.
func ColumnNames() []string {
	cols := make([]string, Channels)
	for i := range cols {
		cols[i] = fmt.Sprintf("s%d", i+1)
	}
	return cols
}
