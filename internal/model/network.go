package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activations understood by Layer.Activation.
const (
	Linear  = "linear"
	ReLU    = "relu"
	Tanh    = "tanh"
	Sigmoid = "sigmoid"
)

// Layer is one fully connected layer: act(W·x + b), W stored out×in.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation,omitempty"`
}

// Network is a feed-forward stack of dense layers.
type Network struct {
	Layers []Layer `json:"layers"`

	dense []denseLayer
}

type denseLayer struct {
	w   *mat.Dense
	b   *mat.VecDense
	act func(float64) float64
}

// Compile validates shapes and prepares the matrices used by Predict.
func (n *Network) Compile() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network: no layers")
	}
	dense := make([]denseLayer, len(n.Layers))
	in := -1
	for i, l := range n.Layers {
		out := len(l.Weights)
		if out == 0 || len(l.Bias) != out {
			return fmt.Errorf("network: layer %d: %d weight rows, %d biases", i, out, len(l.Bias))
		}
		width := len(l.Weights[0])
		if in >= 0 && width != in {
			return fmt.Errorf("network: layer %d takes %d inputs, previous layer gives %d", i, width, in)
		}
		data := make([]float64, 0, out*width)
		for r, row := range l.Weights {
			if len(row) != width {
				return fmt.Errorf("network: layer %d: ragged weight row %d", i, r)
			}
			data = append(data, row...)
		}
		act, err := activation(l.Activation)
		if err != nil {
			return fmt.Errorf("network: layer %d: %w", i, err)
		}
		dense[i] = denseLayer{
			w:   mat.NewDense(out, width, data),
			b:   mat.NewVecDense(out, append([]float64(nil), l.Bias...)),
			act: act,
		}
		in = out
	}
	n.dense = dense
	return nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", Linear:
		return nil, nil
	case ReLU:
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case Tanh:
		return math.Tanh, nil
	case Sigmoid:
		return func(v float64) float64 { return 1 / (1 + math.Exp(-v)) }, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}

// InputSize is the feature width the first layer expects.
func (n *Network) InputSize() int {
	if len(n.dense) == 0 {
		return 0
	}
	_, c := n.dense[0].w.Dims()
	return c
}

// OutputSize is the width of the last layer.
func (n *Network) OutputSize() int {
	if len(n.dense) == 0 {
		return 0
	}
	r, _ := n.dense[len(n.dense)-1].w.Dims()
	return r
}

// Predict runs one feature vector through the network.
func (n *Network) Predict(x []float64) ([]float64, error) {
	if n.dense == nil {
		if err := n.Compile(); err != nil {
			return nil, err
		}
	}
	if len(x) != n.InputSize() {
		return nil, fmt.Errorf("network: expected %d inputs, got %d", n.InputSize(), len(x))
	}
	v := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for _, l := range n.dense {
		r, _ := l.w.Dims()
		next := mat.NewVecDense(r, nil)
		next.MulVec(l.w, v)
		next.AddVec(next, l.b)
		if l.act != nil {
			raw := next.RawVector().Data
			for i := range raw {
				raw[i] = l.act(raw[i])
			}
		}
		v = next
	}
	out := v.RawVector().Data
	for i, f := range out {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("network: non-finite output %d", i)
		}
	}
	return out, nil
}
