package model

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

// JointMSE averages a per-column error over each joint's x, y and z.
func JointMSE(columnMSE []float64) ([]float64, error) {
	if len(columnMSE) != landmarks.Values {
		return nil, fmt.Errorf("model: %d column errors, want %d", len(columnMSE), landmarks.Values)
	}
	out := make([]float64, landmarks.Joints)
	for j := range out {
		out[j] = (columnMSE[3*j] + columnMSE[3*j+1] + columnMSE[3*j+2]) / 3
	}
	return out, nil
}

// WriteReport saves a bar chart of the held-out error per joint.
// The image format follows the file extension (png, svg, pdf).
func WriteReport(path string, res *TrainResult) error {
	perJoint, err := JointMSE(res.ColumnMSE)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Test MSE per joint (%d rows, overall %.5f)", res.TestRows, res.TestMSE)
	p.Y.Label.Text = "MSE"

	bars, err := plotter.NewBarChart(plotter.Values(perJoint), vg.Points(12))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(landmarks.JointNames[:]...)
	p.X.Tick.Label.Rotation = 1.2

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save training report: %w", err)
	}
	return nil
}
