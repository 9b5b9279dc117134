package report

import (
	"math"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/types"
)

// Full-reference scores of a stream measured against itself.
const (
	vmafIdentity = 100.0
	ssimIdentity = 1.0
)

// Input carries everything the synthesizer may use. Every field is optional.
type Input struct {
	SourceMetadata     *types.VideoMetadata `json:"source_metadata,omitempty"`
	TranscodedMetadata *types.VideoMetadata `json:"transcoded_metadata,omitempty"`

	SourceGOP     *gop.Stats `json:"source_gop,omitempty"`
	TranscodedGOP *gop.Stats `json:"transcoded_gop,omitempty"`

	// ReferenceMetrics and TranscodedMetrics are summaries of the same
	// metrics for each stream measured against a common reference. When
	// only TranscodedMetrics is given it is read as a full-reference
	// measurement against the source.
	ReferenceMetrics  map[string]quality.Summary `json:"reference_metrics,omitempty"`
	TranscodedMetrics map[string]quality.Summary `json:"transcoded_metrics,omitempty"`
	// MetricDeltas supplies precomputed target-minus-reference deltas and
	// takes precedence over the summaries.
	MetricDeltas map[string]float64 `json:"metric_deltas,omitempty"`

	Artifacts *artifacts.Analysis `json:"artifacts,omitempty"`
}

// Empty reports whether no input category is present.
func (in Input) Empty() bool {
	return in.SourceMetadata == nil && in.TranscodedMetadata == nil &&
		in.SourceGOP == nil && in.TranscodedGOP == nil &&
		len(in.ReferenceMetrics) == 0 && len(in.TranscodedMetrics) == 0 &&
		len(in.MetricDeltas) == 0 &&
		(in.Artifacts == nil || len(in.Artifacts.Scores) == 0)
}

// Facts are the derived values every rule table reads.
type Facts struct {
	VMAFDelta *float64
	PSNRDelta *float64
	SSIMDelta *float64

	VMAFMean  *float64
	PSNRYMean *float64

	// BitrateRatio is transcoded over source bitrate.
	BitrateRatio *float64
	SizeRatio    *float64

	TranscodedBitDepth int
	Downscaled         bool
	CodecChanged       bool

	SourceAvgGOP     float64
	TranscodedAvgGOP float64
	NoKeyframes      bool

	ArtifactMode artifacts.Mode
	Artifacts    []artifacts.Score
	// Worsened and Improved count confident comparison scores whose delta
	// exceeds the noise threshold.
	Worsened int
	Improved int
	// AllArtifactsLowConfidence is true when artifact scores exist and
	// every one of them is low-confidence.
	AllArtifactsLowConfidence bool

	issues  []Issue
	verdict *types.Verdict
}

// HasVMAF reports whether a VMAF delta is known.
func (f Facts) HasVMAF() bool { return f.VMAFDelta != nil }

func (f Facts) hasVerdict(v types.Verdict) bool {
	return f.verdict != nil && *f.verdict == v
}

// HasIssue reports whether an issue for a was surfaced.
func (f Facts) HasIssue(a types.ArtifactType) bool {
	_, ok := f.Issue(a)
	return ok
}

// Issue returns the surfaced issue for a.
func (f Facts) Issue(a types.ArtifactType) (Issue, bool) {
	for _, is := range f.issues {
		if is.Artifact == a {
			return is, true
		}
	}
	return Issue{}, false
}

func deriveFacts(in Input, cfg Config) Facts {
	var f Facts

	f.VMAFDelta = metricDelta(in, quality.MetricVMAF, vmafIdentity, true)
	f.PSNRDelta = metricDelta(in, quality.MetricPSNRY, 0, false)
	f.SSIMDelta = metricDelta(in, quality.MetricSSIM, ssimIdentity, true)

	if s, ok := in.TranscodedMetrics[quality.MetricVMAF]; ok {
		f.VMAFMean = ptr(s.Mean)
	}
	if s, ok := in.TranscodedMetrics[quality.MetricPSNRY]; ok {
		f.PSNRYMean = ptr(s.Mean)
	}

	src, dst := in.SourceMetadata, in.TranscodedMetadata
	if dst != nil {
		f.TranscodedBitDepth = dst.BitDepth
	}
	if src != nil && dst != nil {
		if src.BitRate > 0 && dst.BitRate > 0 {
			f.BitrateRatio = ptr(float64(dst.BitRate) / float64(src.BitRate))
		}
		if src.Size > 0 && dst.Size > 0 {
			f.SizeRatio = ptr(float64(dst.Size) / float64(src.Size))
		}
		f.Downscaled = dst.Pixels() < src.Pixels()
		f.CodecChanged = src.Codec != dst.Codec
	}

	if in.SourceGOP != nil {
		f.SourceAvgGOP = in.SourceGOP.AvgGOPLength
	}
	if in.TranscodedGOP != nil {
		f.TranscodedAvgGOP = in.TranscodedGOP.AvgGOPLength
		f.NoKeyframes = in.TranscodedGOP.NoKeyframeDetected && !in.TranscodedGOP.InsufficientSignal
	}

	if in.Artifacts != nil && len(in.Artifacts.Scores) > 0 {
		f.ArtifactMode = in.Artifacts.Mode
		f.Artifacts = in.Artifacts.Scores
		f.AllArtifactsLowConfidence = true
		for _, s := range in.Artifacts.Scores {
			if !s.LowConfidence {
				f.AllArtifactsLowConfidence = false
			}
			if s.Delta == nil || s.LowConfidence {
				continue
			}
			switch {
			case *s.Delta > cfg.NoiseThreshold:
				f.Worsened++
			case *s.Delta < -cfg.NoiseThreshold:
				f.Improved++
			}
		}
	}

	return f
}

// metricDelta resolves a target-minus-reference delta for name from, in
// order, explicit deltas, paired summaries, or a full-reference transcoded
// summary measured against its identity score.
func metricDelta(in Input, name string, identity float64, hasIdentity bool) *float64 {
	if d, ok := in.MetricDeltas[name]; ok && !math.IsNaN(d) {
		return ptr(d)
	}
	tgt, ok := in.TranscodedMetrics[name]
	if !ok {
		return nil
	}
	if ref, ok := in.ReferenceMetrics[name]; ok {
		return ptr(tgt.Mean - ref.Mean)
	}
	if hasIdentity {
		return ptr(tgt.Mean - identity)
	}
	return nil
}

func ptr(v float64) *float64 { return &v }
