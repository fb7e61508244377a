package dataset

import (
	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

// Joint is one x, y, z triple in the CSV.
type Joint struct {
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
	Z float64 `csv:"z"`
}

// Hand maps the 63 landmark columns, <Joint>_x, <Joint>_y, <Joint>_z.
// Field order is the wire order of landmarks.JointNames.
type Hand struct {
	Wrist     Joint `csv:"Wrist_,inline"`
	ThumbCMC  Joint `csv:"Thumb_CMC_,inline"`
	ThumbMCP  Joint `csv:"Thumb_MCP_,inline"`
	ThumbIP   Joint `csv:"Thumb_IP_,inline"`
	ThumbTip  Joint `csv:"Thumb_Tip_,inline"`
	IndexMCP  Joint `csv:"Index_MCP_,inline"`
	IndexPIP  Joint `csv:"Index_PIP_,inline"`
	IndexDIP  Joint `csv:"Index_DIP_,inline"`
	IndexTip  Joint `csv:"Index_Tip_,inline"`
	MiddleMCP Joint `csv:"Middle_MCP_,inline"`
	MiddlePIP Joint `csv:"Middle_PIP_,inline"`
	MiddleDIP Joint `csv:"Middle_DIP_,inline"`
	MiddleTip Joint `csv:"Middle_Tip_,inline"`
	RingMCP   Joint `csv:"Ring_MCP_,inline"`
	RingPIP   Joint `csv:"Ring_PIP_,inline"`
	RingDIP   Joint `csv:"Ring_DIP_,inline"`
	RingTip   Joint `csv:"Ring_Tip_,inline"`
	PinkyMCP  Joint `csv:"Pinky_MCP_,inline"`
	PinkyPIP  Joint `csv:"Pinky_PIP_,inline"`
	PinkyDIP  Joint `csv:"Pinky_DIP_,inline"`
	PinkyTip  Joint `csv:"Pinky_Tip_,inline"`
}

func (h *Hand) joints() [landmarks.Joints]*Joint {
	return [landmarks.Joints]*Joint{
		&h.Wrist,
		&h.ThumbCMC,
		&h.ThumbMCP,
		&h.ThumbIP,
		&h.ThumbTip,
		&h.IndexMCP,
		&h.IndexPIP,
		&h.IndexDIP,
		&h.IndexTip,
		&h.MiddleMCP,
		&h.MiddlePIP,
		&h.MiddleDIP,
		&h.MiddleTip,
		&h.RingMCP,
		&h.RingPIP,
		&h.RingDIP,
		&h.RingTip,
		&h.PinkyMCP,
		&h.PinkyPIP,
		&h.PinkyDIP,
		&h.PinkyTip,
	}
}

// Frame flattens h into landmark order.
func (h *Hand) Frame() landmarks.Frame {
	var f landmarks.Frame
	for i, j := range h.joints() {
		f[3*i], f[3*i+1], f[3*i+2] = j.X, j.Y, j.Z
	}
	return f
}

// HandFrom is the inverse of Frame.
func HandFrom(f landmarks.Frame) Hand {
	var h Hand
	for i, j := range h.joints() {
		j.X, j.Y, j.Z = f[3*i], f[3*i+1], f[3*i+2]
	}
	return h
}
