// Package landmarks defines the fixed 21-joint hand layout shared by the
// collection CSV, the model output and the renderer datagrams.
package landmarks

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Joints is the number of tracked hand joints.
	Joints = 21
	// Values is the number of coordinates per frame (x, y, z per joint).
	Values = Joints * 3
)

// JointNames lists the joints in wire order: wrist, then thumb, index,
// middle, ring and pinky from proximal to distal.
var JointNames = [Joints]string{
	"Wrist",
	"Thumb_CMC", "Thumb_MCP", "Thumb_IP", "Thumb_Tip",
	"Index_MCP", "Index_PIP", "Index_DIP", "Index_Tip",
	"Middle_MCP", "Middle_PIP", "Middle_DIP", "Middle_Tip",
	"Ring_MCP", "Ring_PIP", "Ring_DIP", "Ring_Tip",
	"Pinky_MCP", "Pinky_PIP", "Pinky_DIP", "Pinky_Tip",
}

// Columns returns the 63 column names, <Joint>_x, <Joint>_y, <Joint>_z.
func Columns() []string {
	cols := make([]string, 0, Values)
	for _, name := range JointNames {
		cols = append(cols, name+"_x", name+"_y", name+"_z")
	}
	return cols
}

// Frame is one set of landmark coordinates in Columns order.
type Frame [Values]float64

// Joint returns the (x, y, z) coordinates of joint i.
func (f Frame) Joint(i int) [3]float64 {
	return [3]float64{f[3*i], f[3*i+1], f[3*i+2]}
}

// FrameFrom copies a 63-value vector into a Frame.
func FrameFrom(values []float64) (Frame, error) {
	var f Frame
	if len(values) != Values {
		return f, fmt.Errorf("landmarks: expected %d values, got %d", Values, len(values))
	}
	copy(f[:], values)
	return f, nil
}

// Format renders values with four decimals, joined by ", ".
func Format(values []float64) string {
	buf := make([]byte, 0, len(values)*9)
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = strconv.AppendFloat(buf, v, 'f', 4, 64)
	}
	return string(buf)
}

// Parse reads a comma separated list of numbers as produced by Format.
func Parse(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("landmarks: empty payload")
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("landmarks: value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
