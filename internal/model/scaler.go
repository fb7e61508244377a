// Package model holds the feature scaler and the landmark regression
// network, their JSON artifacts and the offline trainer.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Scaler standardises raw EMG features: (x - mean) / scale.
type Scaler struct {
	Columns []string  `json:"columns,omitempty"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// Transform returns the scaled copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: expected %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

func (s *Scaler) validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler: mean/scale length mismatch (%d/%d)", len(s.Mean), len(s.Scale))
	}
	if len(s.Columns) != 0 && len(s.Columns) != len(s.Mean) {
		return fmt.Errorf("scaler: %d columns for %d features", len(s.Columns), len(s.Mean))
	}
	for i, v := range s.Scale {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scaler: invalid scale %v for feature %d", v, i)
		}
	}
	return nil
}

// FitScaler computes per-column mean and population standard deviation.
// Constant columns get a scale of 1.
func FitScaler(x mat.Matrix, columns []string) *Scaler {
	rows, cols := x.Dims()
	s := &Scaler{
		Columns: columns,
		Mean:    make([]float64, cols),
		Scale:   make([]float64, cols),
	}
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += x.At(i, j)
		}
		mean := sum / float64(rows)
		var sq float64
		for i := 0; i < rows; i++ {
			d := x.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(rows))
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s
}

// transformMatrix scales every row of x into a new matrix.
func (s *Scaler) transformMatrix(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out
}
