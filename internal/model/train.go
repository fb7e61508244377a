package model

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// TrainOptions controls Train.
type TrainOptions struct {
	// TestFraction of the rows is held out for evaluation.
	TestFraction float64
	// Ridge is the L2 penalty on the weights; the bias is not penalised.
	Ridge float64
	// Seed drives the shuffle before the split.
	Seed uint64
	// FeatureColumns are stored in the scaler artifact.
	FeatureColumns []string
}

// TrainResult is the fitted scaler and network with their evaluation.
type TrainResult struct {
	Scaler    *Scaler
	Network   *Network
	TrainRows int
	TestRows  int
	TrainMSE  float64
	TestMSE   float64
	// ColumnMSE is the test error per output column; nil without a test split.
	ColumnMSE []float64
}

// ErrNotEnoughData is returned when the split leaves nothing to fit.
var ErrNotEnoughData = errors.New("model: not enough rows to train")

// Train fits a standard scaler and a ridge regularised linear layer that
// maps x rows to y rows.
func Train(x, y [][]float64, opts TrainOptions) (*TrainResult, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("model: %d feature rows, %d target rows", n, len(y))
	}
	if n < 2 {
		return nil, ErrNotEnoughData
	}
	if opts.TestFraction < 0 || opts.TestFraction >= 1 {
		return nil, fmt.Errorf("model: test fraction %v out of [0, 1)", opts.TestFraction)
	}

	perm := rand.New(rand.NewPCG(opts.Seed, 0x9e3779b97f4a7c15)).Perm(n)
	nTest := int(float64(n) * opts.TestFraction)
	if nTest >= n {
		nTest = n - 1
	}
	trainIdx, testIdx := perm[nTest:], perm[:nTest]

	xTrain, err := rowsToDense(x, trainIdx)
	if err != nil {
		return nil, fmt.Errorf("model: features: %w", err)
	}
	yTrain, err := rowsToDense(y, trainIdx)
	if err != nil {
		return nil, fmt.Errorf("model: targets: %w", err)
	}

	scaler := FitScaler(xTrain, opts.FeatureColumns)
	layer, err := fitRidge(scaler.transformMatrix(xTrain), yTrain, opts.Ridge)
	if err != nil {
		return nil, err
	}
	net := &Network{Layers: []Layer{layer}}
	if err := net.Compile(); err != nil {
		return nil, err
	}

	res := &TrainResult{
		Scaler:    scaler,
		Network:   net,
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
	}
	if res.TrainMSE, _, err = evaluate(scaler, net, x, y, trainIdx); err != nil {
		return nil, err
	}
	if len(testIdx) > 0 {
		if res.TestMSE, res.ColumnMSE, err = evaluate(scaler, net, x, y, testIdx); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func rowsToDense(rows [][]float64, idx []int) (*mat.Dense, error) {
	cols := len(rows[idx[0]])
	data := make([]float64, 0, len(idx)*cols)
	for _, i := range idx {
		if len(rows[i]) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(rows[i]), cols)
		}
		data = append(data, rows[i]...)
	}
	return mat.NewDense(len(idx), cols, data), nil
}

// fitRidge solves (XᵀX + λI)W = XᵀY with a trailing bias column in X.
func fitRidge(x, y *mat.Dense, ridge float64) (Layer, error) {
	rows, in := x.Dims()
	_, out := y.Dims()

	xa := mat.NewDense(rows, in+1, nil)
	xa.Slice(0, rows, 0, in).(*mat.Dense).Copy(x)
	for i := 0; i < rows; i++ {
		xa.Set(i, in, 1)
	}

	var a mat.Dense
	a.Mul(xa.T(), xa)
	for i := 0; i < in; i++ {
		a.Set(i, i, a.At(i, i)+ridge)
	}
	var b mat.Dense
	b.Mul(xa.T(), y)

	var w mat.Dense
	if err := w.Solve(&a, &b); err != nil {
		return Layer{}, fmt.Errorf("model: least squares: %w", err)
	}

	layer := Layer{
		Weights:    make([][]float64, out),
		Bias:       make([]float64, out),
		Activation: Linear,
	}
	for o := 0; o < out; o++ {
		layer.Weights[o] = make([]float64, in)
		for i := 0; i < in; i++ {
			layer.Weights[o][i] = w.At(i, o)
		}
		layer.Bias[o] = w.At(in, o)
	}
	return layer, nil
}

func evaluate(s *Scaler, net *Network, x, y [][]float64, idx []int) (float64, []float64, error) {
	cols := make([]float64, len(y[idx[0]]))
	var total float64
	for _, i := range idx {
		scaled, err := s.Transform(x[i])
		if err != nil {
			return 0, nil, err
		}
		pred, err := net.Predict(scaled)
		if err != nil {
			return 0, nil, err
		}
		for j, p := range pred {
			d := p - y[i][j]
			cols[j] += d * d
			total += d * d
		}
	}
	for j := range cols {
		cols[j] /= float64(len(idx))
	}
	return total / float64(len(idx)*len(cols)), cols, nil
}
