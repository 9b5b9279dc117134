package types

import (
	"fmt"
	"strings"
)

// FrameType represents the coding type of a video frame.
type FrameType uint8

const (
	FrameTypeI     FrameType = iota // Intra-coded (keyframe)
	FrameTypeP                      // Predictive
	FrameTypeB                      // Bidirectional
	FrameTypeOther                  // Anything a probe reports that is not I, P or B
)

// String returns the string representation of FrameType
func (f FrameType) String() string {
	switch f {
	case FrameTypeI:
		return "I"
	case FrameTypeP:
		return "P"
	case FrameTypeB:
		return "B"
	default:
		return "other"
	}
}

// IsKeyframe returns true if this is a keyframe type
func (f FrameType) IsKeyframe() bool {
	return f == FrameTypeI
}

// ParseFrameType maps a probe picture type ("I", "p", "B", "?") to a FrameType.
// Unrecognized values map to FrameTypeOther.
func ParseFrameType(s string) FrameType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I":
		return FrameTypeI
	case "P":
		return FrameTypeP
	case "B":
		return FrameTypeB
	default:
		return FrameTypeOther
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f FrameType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FrameType) UnmarshalText(text []byte) error {
	*f = ParseFrameType(string(text))
	return nil
}

// FrameRecord is one entry of an ordered per-frame probe listing.
type FrameRecord struct {
	Timestamp float64   `json:"timestamp"` // seconds
	Type      FrameType `json:"type"`
	Size      int64     `json:"size"` // bytes
}

// ValidateFrameOrder checks that timestamps never decrease. It returns the
// index of the first offending frame alongside the error.
func ValidateFrameOrder(frames []FrameRecord) (int, error) {
	for i := 1; i < len(frames); i++ {
		if frames[i].Timestamp < frames[i-1].Timestamp {
			return i, fmt.Errorf("frame %d timestamp %.6f precedes frame %d timestamp %.6f",
				i, frames[i].Timestamp, i-1, frames[i-1].Timestamp)
		}
	}
	return -1, nil
}
