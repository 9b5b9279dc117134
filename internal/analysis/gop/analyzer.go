// Package gop derives keyframe distribution and GOP statistics from an
// ordered per-frame listing.
package gop

import (
	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// DefaultMaxKeyframeTimestamps caps the keyframe timestamp list.
const DefaultMaxKeyframeTimestamps = 100

// Config tunes the analyzer.
type Config struct {
	MaxKeyframeTimestamps int `json:"max_keyframe_timestamps"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{MaxKeyframeTimestamps: DefaultMaxKeyframeTimestamps}
}

// FrameCounts tallies frames by type.
type FrameCounts struct {
	I     int `json:"I"`
	P     int `json:"P"`
	B     int `json:"B"`
	Other int `json:"other"`
}

// Ratios holds per-type shares of all frames plus inter-type ratios. Every
// ratio with an empty denominator class is 0.
type Ratios struct {
	I     float64 `json:"I"`
	P     float64 `json:"P"`
	B     float64 `json:"B"`
	PPerI float64 `json:"p_per_i"`
	BPerI float64 `json:"b_per_i"`
	BPerP float64 `json:"b_per_p"`
}

// FrameSizes holds mean frame sizes in bytes by type.
type FrameSizes struct {
	I float64 `json:"I"`
	P float64 `json:"P"`
	B float64 `json:"B"`
}

// GOP describes one group of pictures, opened by an I-frame.
type GOP struct {
	Index      int     `json:"index"`
	StartFrame int     `json:"start_frame"`
	Length     int     `json:"length"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	Bytes      int64   `json:"bytes"`
	Incomplete bool    `json:"incomplete,omitempty"`
}

// Stats is the result of analyzing one frame sequence.
type Stats struct {
	TotalFrames   int         `json:"total_frames"`
	Counts        FrameCounts `json:"frame_distribution"`
	Ratios        Ratios      `json:"ratios"`
	AvgFrameSize  FrameSizes  `json:"avg_frame_size"`
	LeadingFrames int         `json:"leading_frames,omitempty"`

	// GOPs lists every GOP in order, including the trailing open one.
	GOPs []GOP `json:"gops"`
	// GOPCount counts completed GOPs only.
	GOPCount     int     `json:"gop_count"`
	GOPLengths   []int   `json:"gop_lengths"`
	AvgGOPLength float64 `json:"avg_gop"`
	MinGOPLength int     `json:"min_gop"`
	MaxGOPLength int     `json:"max_gop"`
	// AvgKeyframeInterval is the mean spacing in seconds between keyframes
	// that open completed GOPs.
	AvgKeyframeInterval float64 `json:"avg_keyframe_interval"`

	KeyframeTimestamps          []float64 `json:"keyframe_timestamps"`
	KeyframeTimestampsTruncated bool      `json:"keyframe_timestamps_truncated,omitempty"`

	NoKeyframeDetected bool `json:"no_keyframe_detected,omitempty"`
	InsufficientSignal bool `json:"insufficient_signal,omitempty"`
}

// CompletedLengthSum returns the total length of all completed GOPs.
func (s Stats) CompletedLengthSum() int {
	sum := 0
	for _, l := range s.GOPLengths {
		sum += l
	}
	return sum
}

// Trailing returns the open GOP at the end of the sequence, if any.
func (s Stats) Trailing() (GOP, bool) {
	if n := len(s.GOPs); n > 0 && s.GOPs[n-1].Incomplete {
		return s.GOPs[n-1], true
	}
	return GOP{}, false
}

// Analyze computes GOP statistics for frames, which must be in
// non-decreasing timestamp order. An empty sequence yields zeroed statistics
// flagged InsufficientSignal; a sequence without I-frames yields zero GOPs
// flagged NoKeyframeDetected. Neither is an error.
func Analyze(frames []types.FrameRecord, cfg Config) (Stats, error) {
	if idx, err := types.ValidateFrameOrder(frames); err != nil {
		return Stats{}, apperrors.NewMalformedInputError("frames", err.Error()).
			WithDetails(map[string]interface{}{"field": "frames", "index": idx})
	}
	if cfg.MaxKeyframeTimestamps <= 0 {
		cfg.MaxKeyframeTimestamps = DefaultMaxKeyframeTimestamps
	}

	stats := Stats{
		TotalFrames:        len(frames),
		GOPs:               []GOP{},
		GOPLengths:         []int{},
		KeyframeTimestamps: []float64{},
	}
	if len(frames) == 0 {
		stats.InsufficientSignal = true
		stats.NoKeyframeDetected = true
		return stats, nil
	}

	var sizes [3]int64
	var current *GOP

	closeGOP := func(next *types.FrameRecord) {
		if current == nil {
			return
		}
		if next != nil {
			current.Duration = next.Timestamp - current.StartTime
		} else {
			current.Incomplete = true
			current.Duration = frames[len(frames)-1].Timestamp - current.StartTime
		}
		stats.GOPs = append(stats.GOPs, *current)
	}

	for i := range frames {
		f := &frames[i]

		switch f.Type {
		case types.FrameTypeI:
			stats.Counts.I++
			sizes[0] += f.Size
		case types.FrameTypeP:
			stats.Counts.P++
			sizes[1] += f.Size
		case types.FrameTypeB:
			stats.Counts.B++
			sizes[2] += f.Size
		default:
			stats.Counts.Other++
		}

		if f.Type.IsKeyframe() {
			closeGOP(f)
			current = &GOP{
				Index:      len(stats.GOPs),
				StartFrame: i,
				StartTime:  f.Timestamp,
			}
			if len(stats.KeyframeTimestamps) < cfg.MaxKeyframeTimestamps {
				stats.KeyframeTimestamps = append(stats.KeyframeTimestamps, f.Timestamp)
			} else {
				stats.KeyframeTimestampsTruncated = true
			}
		}

		if current == nil {
			stats.LeadingFrames++
			continue
		}
		current.Length++
		current.Bytes += f.Size
	}
	closeGOP(nil)

	stats.Ratios = ratios(stats.Counts, len(frames))
	stats.AvgFrameSize = FrameSizes{
		I: safeDiv(float64(sizes[0]), float64(stats.Counts.I)),
		P: safeDiv(float64(sizes[1]), float64(stats.Counts.P)),
		B: safeDiv(float64(sizes[2]), float64(stats.Counts.B)),
	}

	if stats.Counts.I == 0 {
		stats.NoKeyframeDetected = true
		return stats, nil
	}

	var intervalSum float64
	for _, g := range stats.GOPs {
		if g.Incomplete {
			continue
		}
		stats.GOPLengths = append(stats.GOPLengths, g.Length)
		intervalSum += g.Duration
		if stats.MinGOPLength == 0 || g.Length < stats.MinGOPLength {
			stats.MinGOPLength = g.Length
		}
		if g.Length > stats.MaxGOPLength {
			stats.MaxGOPLength = g.Length
		}
	}
	stats.GOPCount = len(stats.GOPLengths)
	stats.AvgGOPLength = safeDiv(float64(stats.CompletedLengthSum()), float64(stats.GOPCount))
	stats.AvgKeyframeInterval = safeDiv(intervalSum, float64(stats.GOPCount))

	return stats, nil
}

func ratios(c FrameCounts, total int) Ratios {
	t := float64(total)
	return Ratios{
		I:     safeDiv(float64(c.I), t),
		P:     safeDiv(float64(c.P), t),
		B:     safeDiv(float64(c.B), t),
		PPerI: safeDiv(float64(c.P), float64(c.I)),
		BPerI: safeDiv(float64(c.B), float64(c.I)),
		BPerP: safeDiv(float64(c.B), float64(c.P)),
	}
}

// safeDiv returns 0 for an empty denominator.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
