package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

func TestFitScaler(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := FitScaler(x, []string{"a", "b"})
	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")

	out, err := s.Transform([]float64{2.5, 7})
	require.NoError(t, err)
	assert.InDelta(t, 0, out[0], 1e-12)
	assert.InDelta(t, 2, out[1], 1e-12)

	_, err = s.Transform([]float64{1})
	assert.Error(t, err)
}

func TestNetworkPredict(t *testing.T) {
	n := &Network{Layers: []Layer{
		{Weights: [][]float64{{1, -1}, {0.5, 0.5}}, Bias: []float64{0, -10}, Activation: ReLU},
		{Weights: [][]float64{{2, 3}}, Bias: []float64{1}},
	}}
	require.NoError(t, n.Compile())
	assert.Equal(t, 2, n.InputSize())
	assert.Equal(t, 1, n.OutputSize())

	out, err := n.Predict([]float64{4, 1})
	require.NoError(t, err)
	// relu(3, -7.5) = (3, 0); 2*3 + 0 + 1
	assert.Equal(t, []float64{7}, out)

	_, err = n.Predict([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestNetworkCompileErrors(t *testing.T) {
	tests := map[string]*Network{
		"empty":      {},
		"bias":       {Layers: []Layer{{Weights: [][]float64{{1}}, Bias: []float64{1, 2}}}},
		"ragged":     {Layers: []Layer{{Weights: [][]float64{{1, 2}, {1}}, Bias: []float64{0, 0}}}},
		"chain":      {Layers: []Layer{{Weights: [][]float64{{1}}, Bias: []float64{0}}, {Weights: [][]float64{{1, 1}}, Bias: []float64{0}}}},
		"activation": {Layers: []Layer{{Weights: [][]float64{{1}}, Bias: []float64{0}, Activation: "softsign"}}},
	}
	for name, n := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, n.Compile())
		})
	}
}

func TestArtifactsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	n := &Network{Layers: []Layer{{Weights: [][]float64{{1, 2}}, Bias: []float64{3}, Activation: Tanh}}}
	s := &Scaler{Columns: []string{"s1", "s2"}, Mean: []float64{1, 2}, Scale: []float64{3, 4}}
	require.NoError(t, n.Save(filepath.Join(dir, "model.json")))
	require.NoError(t, s.Save(filepath.Join(dir, "scaler.json")))

	n2, err := LoadNetwork(filepath.Join(dir, "model.json"))
	require.NoError(t, err)
	out, err := n2.Predict([]float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, math.Tanh(3), out[0], 1e-12)

	s2, err := LoadScaler(filepath.Join(dir, "scaler.json"))
	require.NoError(t, err)
	assert.Equal(t, s, s2)
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadNetwork(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrArtifactLoad)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"mean":[1],"scale":[0]}`), 0o644))
	_, err = LoadScaler(bad)
	assert.ErrorIs(t, err, ErrArtifactLoad)

	require.NoError(t, os.WriteFile(bad, []byte(`{"layers":`), 0o644))
	_, err = LoadNetwork(bad)
	assert.ErrorIs(t, err, ErrArtifactLoad)
}

// linearData builds targets that are an exact affine function of x.
func linearData(n int) ([][]float64, [][]float64) {
	x := make([][]float64, n)
	y := make([][]float64, n)
	for i := range x {
		row := make([]float64, 8)
		for j := range row {
			row[j] = float64((i*(j+3))%17) + float64(j)
		}
		x[i] = row
		out := make([]float64, landmarks.Values)
		for k := range out {
			out[k] = 0.01*float64(k) + 0.002*row[k%8] - 0.001*row[(k+3)%8]
		}
		y[i] = out
	}
	return x, y
}

func TestTrainRecoversLinearMap(t *testing.T) {
	x, y := linearData(200)
	res, err := Train(x, y, TrainOptions{TestFraction: 0.2, Ridge: 1e-9, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 160, res.TrainRows)
	assert.Equal(t, 40, res.TestRows)
	assert.Less(t, res.TestMSE, 1e-10)
	assert.Len(t, res.ColumnMSE, landmarks.Values)

	joints, err := JointMSE(res.ColumnMSE)
	require.NoError(t, err)
	assert.Len(t, joints, landmarks.Joints)

	// same seed, same split
	again, err := Train(x, y, TrainOptions{TestFraction: 0.2, Ridge: 1e-9, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, res.Scaler, again.Scaler)
}

func TestTrainRejectsBadInput(t *testing.T) {
	_, err := Train([][]float64{{1}}, [][]float64{{1}}, TrainOptions{})
	assert.ErrorIs(t, err, ErrNotEnoughData)
	_, err = Train([][]float64{{1}, {2}}, [][]float64{{1}}, TrainOptions{})
	assert.Error(t, err)
	_, err = Train([][]float64{{1}, {2}}, [][]float64{{1}, {2}}, TrainOptions{TestFraction: 1})
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	x, y := linearData(50)
	res, err := Train(x, y, TrainOptions{TestFraction: 0.2, Ridge: 1e-6, Seed: 1})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "report.png")
	require.NoError(t, WriteReport(path, res))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, st.Size())
}
