// Package artifacts scores compression artifacts from pixel-domain proxy
// signals, either for a single stream or as target-minus-reference deltas.
package artifacts

import (
	"fmt"
	"math"

	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// Mode is the analysis mode.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeCompare Mode = "compare"
)

// Signals holds raw proxy-signal samples per artifact type, one value per
// analyzed frame.
type Signals map[types.ArtifactType][]float64

// Bands overrides the upper bound of each type's near-zero ambiguous band.
// Zero keeps the calibrated default.
type Bands struct {
	Blur           float64 `json:"blur"`
	Blocking       float64 `json:"blocking"`
	Ringing        float64 `json:"ringing"`
	Banding        float64 `json:"banding"`
	DarkDetailLoss float64 `json:"dark_detail_loss"`
}

// For returns the band bound for t.
func (b Bands) For(t types.ArtifactType) float64 {
	var v float64
	switch t {
	case types.ArtifactBlur:
		v = b.Blur
	case types.ArtifactBlocking:
		v = b.Blocking
	case types.ArtifactRinging:
		v = b.Ringing
	case types.ArtifactBanding:
		v = b.Banding
	case types.ArtifactDarkDetailLoss:
		v = b.DarkDetailLoss
	}
	if v > 0 {
		return v
	}
	return calibrations[t].ambiguous
}

// Config holds the heuristics thresholds.
type Config struct {
	// NoiseThreshold separates worse/better from neutral deltas.
	NoiseThreshold float64 `json:"noise_threshold"`
	// SignificantDelta is the delta a worsened artifact needs to count
	// toward the risk summary.
	SignificantDelta float64 `json:"significant_delta"`
	// NotableDelta is the delta above which a note is emitted.
	NotableDelta float64 `json:"notable_delta"`
	// MinSamples is the number of informative samples needed for full
	// availability confidence.
	MinSamples int `json:"min_samples"`
	// LowConfidenceThreshold flags scores whose confidence falls below it.
	LowConfidenceThreshold float64 `json:"low_confidence_threshold"`
	// LowConfidenceCeiling caps single-stream severity for inputs that lie
	// entirely in the ambiguous band.
	LowConfidenceCeiling float64 `json:"low_confidence_ceiling"`
	AmbiguousBand        Bands   `json:"ambiguous_band"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		NoiseThreshold:         0.05,
		SignificantDelta:       0.1,
		NotableDelta:           0.2,
		MinSamples:             3,
		LowConfidenceThreshold: 0.5,
		LowConfidenceCeiling:   0.5,
	}
}

// Score is the outcome for one artifact type.
type Score struct {
	Type        types.ArtifactType `json:"type"`
	Raw         float64            `json:"raw"`
	Severity    float64            `json:"severity"`
	Level       types.Level        `json:"level"`
	Description string             `json:"description"`

	// comparison mode only
	ReferenceRaw      *float64     `json:"reference_raw,omitempty"`
	ReferenceSeverity *float64     `json:"reference_severity,omitempty"`
	Delta             *float64     `json:"delta,omitempty"`
	Impact            types.Impact `json:"impact,omitempty"`

	Confidence    float64 `json:"confidence"`
	LowConfidence bool    `json:"low_confidence"`
}

// Worsened reports whether a comparison score moved in the bad direction
// beyond the noise threshold.
func (s Score) Worsened() bool {
	return s.Impact == types.ImpactWorse
}

// Analysis is the result of one artifact analysis call.
type Analysis struct {
	Mode     Mode        `json:"mode"`
	Scores   []Score     `json:"artifact_scores"`
	Risk     RiskSummary `json:"risk_summary"`
	Notes    []string    `json:"notes"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Score returns the score for t, if one was computed.
func (a Analysis) Score(t types.ArtifactType) (Score, bool) {
	for _, s := range a.Scores {
		if s.Type == t {
			return s, true
		}
	}
	return Score{}, false
}

// LowConfidence reports whether any score is flagged low-confidence.
func (a Analysis) LowConfidence() bool {
	for _, s := range a.Scores {
		if s.LowConfidence {
			return true
		}
	}
	return false
}

// measurement is one stream's reduced signal for one artifact type.
type measurement struct {
	raw        float64
	severity   float64
	confidence float64
}

// Analyze scores a single stream. Types without samples get no score.
func Analyze(target Signals, cfg Config) (Analysis, error) {
	cfg = withDefaults(cfg)
	if err := validate(target, "target"); err != nil {
		return Analysis{}, err
	}

	out := Analysis{Mode: ModeSingle, Scores: []Score{}, Notes: []string{}}
	for _, t := range types.ArtifactTypes {
		samples := target[t]
		if len(samples) == 0 {
			continue
		}
		m := measure(t, samples, cfg)

		sev := m.severity
		low := m.confidence < cfg.LowConfidenceThreshold
		if m.confidence == 0 && sev > cfg.LowConfidenceCeiling {
			sev = cfg.LowConfidenceCeiling
		}

		level := types.LevelFor(sev)
		out.Scores = append(out.Scores, Score{
			Type:          t,
			Raw:           m.raw,
			Severity:      sev,
			Level:         level,
			Description:   Describe(t, level),
			Confidence:    m.confidence,
			LowConfidence: low,
		})
	}

	if len(out.Scores) == 0 {
		return Analysis{}, apperrors.NewInsufficientSignalError("no artifact signals supplied")
	}

	out.Risk = summarizeSingle(out.Scores)
	out.Notes = singleNotes(out.Scores)
	return out, nil
}

// Compare scores target against reference. Delta is target severity minus
// reference severity, so a positive delta means the artifact got worse and
// swapping the arguments negates every delta.
func Compare(target, reference Signals, cfg Config) (Analysis, error) {
	cfg = withDefaults(cfg)
	if err := validate(target, "target"); err != nil {
		return Analysis{}, err
	}
	if err := validate(reference, "reference"); err != nil {
		return Analysis{}, err
	}

	out := Analysis{Mode: ModeCompare, Scores: []Score{}, Notes: []string{}}
	for _, t := range types.ArtifactTypes {
		tgtSamples, refSamples := target[t], reference[t]
		switch {
		case len(tgtSamples) == 0 && len(refSamples) == 0:
			continue
		case len(tgtSamples) == 0:
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: target signal missing, delta not computed", t))
			continue
		case len(refSamples) == 0:
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: reference signal missing, delta not computed", t))
			continue
		}

		tgt := measure(t, tgtSamples, cfg)
		ref := measure(t, refSamples, cfg)

		delta := tgt.severity - ref.severity
		refRaw, refSev := ref.raw, ref.severity
		confidence := math.Min(tgt.confidence, ref.confidence)
		level := types.LevelFor(tgt.severity)

		out.Scores = append(out.Scores, Score{
			Type:              t,
			Raw:               tgt.raw,
			Severity:          tgt.severity,
			Level:             level,
			Description:       Describe(t, level),
			ReferenceRaw:      &refRaw,
			ReferenceSeverity: &refSev,
			Delta:             &delta,
			Impact:            impactOf(delta, cfg.NoiseThreshold),
			Confidence:        confidence,
			LowConfidence:     confidence < cfg.LowConfidenceThreshold,
		})
	}

	if len(out.Scores) == 0 {
		return Analysis{}, apperrors.NewInsufficientSignalError("no artifact signals present in both streams")
	}

	out.Risk = summarizeCompare(out.Scores, cfg)
	out.Notes = compareNotes(out.Scores, out.Risk, cfg)
	return out, nil
}

// measure reduces samples to a severity. Samples inside the ambiguous band
// carry no texture information and are left out of the severity whenever at
// least one informative sample exists.
func measure(t types.ArtifactType, samples []float64, cfg Config) measurement {
	band := cfg.AmbiguousBand.For(t)
	c := calibrations[t]

	var rawSum, infoSum, allSum float64
	informative := 0
	for _, v := range samples {
		rawSum += v
		n := c.normalize(v)
		allSum += n
		if v > band {
			infoSum += n
			informative++
		}
	}

	total := float64(len(samples))
	m := measurement{raw: rawSum / total}
	if informative == 0 {
		m.severity = allSum / total
		return m
	}

	m.severity = infoSum / float64(informative)
	availability := 0.5 + 0.5*math.Min(float64(informative)/float64(cfg.MinSamples), 1)
	m.confidence = availability * float64(informative) / total
	return m
}

func impactOf(delta, noise float64) types.Impact {
	switch {
	case delta > noise:
		return types.ImpactWorse
	case delta < -noise:
		return types.ImpactBetter
	default:
		return types.ImpactNeutral
	}
}

func validate(s Signals, stream string) error {
	for t, samples := range s {
		if !t.Valid() {
			return apperrors.NewMalformedInputError(stream, fmt.Sprintf("%s: unknown artifact type %d", stream, uint8(t)))
		}
		for i, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewMalformedInputError(stream, fmt.Sprintf("%s %s sample %d is not finite", stream, t, i))
			}
			if v < 0 {
				return apperrors.NewMalformedInputError(stream, fmt.Sprintf("%s %s sample %d is negative", stream, t, i))
			}
		}
	}
	return nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.NoiseThreshold <= 0 {
		cfg.NoiseThreshold = def.NoiseThreshold
	}
	if cfg.SignificantDelta <= 0 {
		cfg.SignificantDelta = def.SignificantDelta
	}
	if cfg.NotableDelta <= 0 {
		cfg.NotableDelta = def.NotableDelta
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.LowConfidenceThreshold <= 0 {
		cfg.LowConfidenceThreshold = def.LowConfidenceThreshold
	}
	if cfg.LowConfidenceCeiling <= 0 {
		cfg.LowConfidenceCeiling = def.LowConfidenceCeiling
	}
	return cfg
}
