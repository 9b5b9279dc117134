package artifacts

import (
	"fmt"

	"github.com/zsiec/vidqa/internal/analysis/types"
)

// calibration maps one artifact's raw proxy signal onto a [0,1] severity
// where clean footage scores near 0.
type calibration struct {
	normalize func(raw float64) float64
	// ambiguous is the default upper bound of the near-zero texture band
	ambiguous float64
}

var calibrations = map[types.ArtifactType]calibration{
	// Laplacian variance; low variance means soft edges.
	types.ArtifactBlur: {
		normalize: func(v float64) float64 { return 1 - clamp01(v/500) },
		ambiguous: 5,
	},
	// share of DCT energy in the high-frequency quadrant of 8x8 blocks
	types.ArtifactBlocking: {
		normalize: func(v float64) float64 { return clamp01(v * 2) },
		ambiguous: 0.005,
	},
	// mean high-pass magnitude around the strongest edges
	types.ArtifactRinging: {
		normalize: func(v float64) float64 { return clamp01(v / 50) },
		ambiguous: 0.5,
	},
	// distinct luma values per flat-region pixel; few values means posterized
	types.ArtifactBanding: {
		normalize: func(v float64) float64 { return 1 - clamp01(v*10) },
		ambiguous: 0.001,
	},
	// mean local variance inside the darkest 30% of pixels
	types.ArtifactDarkDetailLoss: {
		normalize: func(v float64) float64 { return 1 - clamp01(v/100) },
		ambiguous: 0.5,
	},
}

// Normalize maps a raw signal value for t onto [0,1].
func Normalize(t types.ArtifactType, raw float64) (float64, error) {
	c, ok := calibrations[t]
	if !ok {
		return 0, fmt.Errorf("no calibration for %s", t)
	}
	return c.normalize(raw), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

var descriptions = map[types.ArtifactType]map[types.Level]string{
	types.ArtifactBlur: {
		types.LevelLow:    "edges are sharp and fine detail is preserved",
		types.LevelMedium: "edges are slightly soft and fine detail is somewhat blurred",
		types.LevelHigh:   "clearly blurred with heavy loss of detail",
	},
	types.ArtifactBlocking: {
		types.LevelLow:    "macroblock structure is not noticeable",
		types.LevelMedium: "mild macroblocking",
		types.LevelHigh:   "visible macroblock structure and compression traces",
	},
	types.ArtifactRinging: {
		types.LevelLow:    "no noticeable ringing",
		types.LevelMedium: "slight ringing around edges",
		types.LevelHigh:   "pronounced ringing artifacts",
	},
	types.ArtifactBanding: {
		types.LevelLow:    "smooth gradients are preserved",
		types.LevelMedium: "some banding in smooth gradients",
		types.LevelHigh:   "strong posterization in smooth gradients",
	},
	types.ArtifactDarkDetailLoss: {
		types.LevelLow:    "shadow detail is well preserved",
		types.LevelMedium: "partial loss of shadow detail",
		types.LevelHigh:   "severe loss of shadow detail",
	},
}

// Describe returns the human-readable description for t at level.
func Describe(t types.ArtifactType, level types.Level) string {
	return descriptions[t][level]
}
