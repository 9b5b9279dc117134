// Package report combines metadata, frame structure, metric summaries and
// artifact scores into a single transcode verdict with ranked issues and
// encoder recommendations.
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// Config holds the synthesizer thresholds.
type Config struct {
	VMAFRegressionThreshold  float64 `json:"vmaf_regression_threshold"`
	VMAFImprovementThreshold float64 `json:"vmaf_improvement_threshold"`
	PSNRThreshold            float64 `json:"psnr_threshold"`
	SSIMThreshold            float64 `json:"ssim_threshold"`
	// NoiseThreshold is the artifact delta below which a change is ignored
	// when looking for mixed results.
	NoiseThreshold float64 `json:"noise_threshold"`
	// LowBitrateRatio is the transcoded/source bitrate ratio under which
	// blocking is attributed to bitrate starvation.
	LowBitrateRatio float64 `json:"low_bitrate_ratio"`
	// StrongIssueSeverity gates the more invasive recommendations.
	StrongIssueSeverity float64 `json:"strong_issue_severity"`
	// LongGOPFactor flags a transcoded GOP this many times longer than the
	// source GOP.
	LongGOPFactor      float64 `json:"long_gop_factor"`
	MaxIssues          int     `json:"max_issues"`
	MaxRecommendations int     `json:"max_recommendations"`
	// LowVMAF and LowPSNR trigger quality notes on the transcoded stream.
	LowVMAF float64 `json:"low_vmaf"`
	LowPSNR float64 `json:"low_psnr"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		VMAFRegressionThreshold:  3.0,
		VMAFImprovementThreshold: 3.0,
		PSNRThreshold:            0.5,
		SSIMThreshold:            0.005,
		NoiseThreshold:           0.05,
		LowBitrateRatio:          0.5,
		StrongIssueSeverity:      0.2,
		LongGOPFactor:            2,
		MaxIssues:                5,
		MaxRecommendations:       5,
		LowVMAF:                  80,
		LowPSNR:                  30,
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.VMAFRegressionThreshold <= 0 {
		cfg.VMAFRegressionThreshold = def.VMAFRegressionThreshold
	}
	if cfg.VMAFImprovementThreshold <= 0 {
		cfg.VMAFImprovementThreshold = def.VMAFImprovementThreshold
	}
	if cfg.PSNRThreshold <= 0 {
		cfg.PSNRThreshold = def.PSNRThreshold
	}
	if cfg.SSIMThreshold <= 0 {
		cfg.SSIMThreshold = def.SSIMThreshold
	}
	if cfg.NoiseThreshold <= 0 {
		cfg.NoiseThreshold = def.NoiseThreshold
	}
	if cfg.LowBitrateRatio <= 0 {
		cfg.LowBitrateRatio = def.LowBitrateRatio
	}
	if cfg.StrongIssueSeverity <= 0 {
		cfg.StrongIssueSeverity = def.StrongIssueSeverity
	}
	if cfg.LongGOPFactor <= 0 {
		cfg.LongGOPFactor = def.LongGOPFactor
	}
	if cfg.MaxIssues <= 0 {
		cfg.MaxIssues = def.MaxIssues
	}
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = def.MaxRecommendations
	}
	if cfg.LowVMAF <= 0 {
		cfg.LowVMAF = def.LowVMAF
	}
	if cfg.LowPSNR <= 0 {
		cfg.LowPSNR = def.LowPSNR
	}
	return cfg
}

// Issue is one surfaced artifact problem.
type Issue struct {
	Artifact types.ArtifactType `json:"artifact"`
	// Severity is |delta| in comparison mode and the artifact severity in
	// single-stream mode.
	Severity      float64     `json:"severity"`
	Delta         *float64    `json:"delta,omitempty"`
	Level         types.Level `json:"level"`
	Description   string      `json:"description"`
	Cause         string      `json:"likely_cause"`
	LowConfidence bool        `json:"low_confidence"`
}

// QualityChange holds the headline numbers. Absent inputs leave nil fields.
type QualityChange struct {
	VMAFDelta *float64 `json:"vmaf_delta,omitempty"`
	PSNRDelta *float64 `json:"psnr_delta,omitempty"`
	SSIMDelta *float64 `json:"ssim_delta,omitempty"`
	// BitrateSavingPercent is (1 - transcoded/source) * 100.
	BitrateSavingPercent *float64 `json:"bitrate_saving_percent,omitempty"`
	// SizeRatio is transcoded over source file size.
	SizeRatio *float64 `json:"size_ratio,omitempty"`
}

func (q QualityChange) empty() bool {
	return q.VMAFDelta == nil && q.PSNRDelta == nil && q.SSIMDelta == nil &&
		q.BitrateSavingPercent == nil && q.SizeRatio == nil
}

// MetadataChange summarizes what the transcode changed at the container and
// stream level.
type MetadataChange struct {
	Source            types.VideoMetadata `json:"source"`
	Transcoded        types.VideoMetadata `json:"transcoded"`
	CodecChanged      bool                `json:"codec_changed"`
	ResolutionChanged bool                `json:"resolution_changed"`
	FrameRateChanged  bool                `json:"frame_rate_changed"`
}

// StructureChange compares GOP structure.
type StructureChange struct {
	SourceAvgGOP                  float64 `json:"source_avg_gop"`
	TranscodedAvgGOP              float64 `json:"transcoded_avg_gop"`
	SourceKeyframeInterval        float64 `json:"source_keyframe_interval"`
	TranscodedKeyframeInterval    float64 `json:"transcoded_keyframe_interval"`
	SourceBFrameRatio             float64 `json:"source_b_frame_ratio"`
	TranscodedBFrameRatio         float64 `json:"transcoded_b_frame_ratio"`
	TranscodedNoKeyframesDetected bool    `json:"transcoded_no_keyframe_detected,omitempty"`
}

// TranscodeReport is the synthesized outcome.
type TranscodeReport struct {
	Verdict types.Verdict `json:"verdict"`
	// DecidedBy names the decision-table rule that produced the verdict.
	DecidedBy string `json:"decided_by"`
	Summary   string `json:"summary"`

	QualityChange *QualityChange         `json:"quality_change,omitempty"`
	Metadata      *MetadataChange        `json:"metadata,omitempty"`
	Structure     *StructureChange       `json:"frame_structure,omitempty"`
	ArtifactRisk  *artifacts.RiskSummary `json:"artifact_risk,omitempty"`

	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Notes           []string `json:"notes,omitempty"`

	LowConfidence bool `json:"low_confidence"`
}

// Synthesize builds a report from whatever parts of in are present.
func Synthesize(in Input, cfg Config) (TranscodeReport, error) {
	if in.Empty() {
		return TranscodeReport{}, apperrors.NewInsufficientSignalError("no analysis inputs supplied")
	}
	cfg = withDefaults(cfg)

	facts := deriveFacts(in, cfg)
	facts.issues = surfaceIssues(facts, cfg)

	rule, err := decide(facts, VerdictRules(cfg))
	if err != nil {
		return TranscodeReport{}, err
	}
	facts.verdict = &rule.Verdict

	summary, err := summarize(rule.Verdict, facts)
	if err != nil {
		return TranscodeReport{}, err
	}

	out := TranscodeReport{
		Verdict:         rule.Verdict,
		DecidedBy:       rule.Name,
		Summary:         summary,
		Issues:          facts.issues,
		Recommendations: recommend(facts, cfg),
		Notes:           notes(in, facts, cfg),
	}

	qc := QualityChange{
		VMAFDelta: facts.VMAFDelta,
		PSNRDelta: facts.PSNRDelta,
		SSIMDelta: facts.SSIMDelta,
		SizeRatio: facts.SizeRatio,
	}
	if facts.BitrateRatio != nil {
		qc.BitrateSavingPercent = ptr((1 - *facts.BitrateRatio) * 100)
	}
	if !qc.empty() {
		out.QualityChange = &qc
	}

	if in.SourceMetadata != nil && in.TranscodedMetadata != nil {
		src, dst := *in.SourceMetadata, *in.TranscodedMetadata
		out.Metadata = &MetadataChange{
			Source:            src,
			Transcoded:        dst,
			CodecChanged:      src.Codec != dst.Codec,
			ResolutionChanged: src.Width != dst.Width || src.Height != dst.Height,
			FrameRateChanged:  math.Abs(src.FPS-dst.FPS) > 0.001,
		}
	}

	if in.SourceGOP != nil && in.TranscodedGOP != nil {
		out.Structure = &StructureChange{
			SourceAvgGOP:                  in.SourceGOP.AvgGOPLength,
			TranscodedAvgGOP:              in.TranscodedGOP.AvgGOPLength,
			SourceKeyframeInterval:        in.SourceGOP.AvgKeyframeInterval,
			TranscodedKeyframeInterval:    in.TranscodedGOP.AvgKeyframeInterval,
			SourceBFrameRatio:             in.SourceGOP.Ratios.B,
			TranscodedBFrameRatio:         in.TranscodedGOP.Ratios.B,
			TranscodedNoKeyframesDetected: facts.NoKeyframes,
		}
	}

	if in.Artifacts != nil && len(in.Artifacts.Scores) > 0 {
		risk := in.Artifacts.Risk
		out.ArtifactRisk = &risk
	}

	for _, is := range out.Issues {
		if is.LowConfidence {
			out.LowConfidence = true
		}
	}
	if rule.Name == "default" && facts.AllArtifactsLowConfidence &&
		facts.VMAFDelta == nil && facts.PSNRDelta == nil && facts.SSIMDelta == nil {
		out.LowConfidence = true
	}

	return out, nil
}

func decide(f Facts, rules []VerdictRule) (VerdictRule, error) {
	for _, r := range rules {
		if r.Match(f) {
			return r, nil
		}
	}
	return VerdictRule{}, apperrors.NewInternalError("verdict table has no matching rule")
}

// surfaceIssues turns artifact scores into ranked issues with causes.
func surfaceIssues(f Facts, cfg Config) []Issue {
	causes := CauseRules(cfg)
	issues := []Issue{}
	for _, s := range f.Artifacts {
		var severity float64
		switch f.ArtifactMode {
		case artifacts.ModeCompare:
			if s.Delta == nil || s.Impact != types.ImpactWorse {
				continue
			}
			severity = math.Abs(*s.Delta)
		default:
			if s.Level == types.LevelLow {
				continue
			}
			severity = s.Severity
		}
		issues = append(issues, Issue{
			Artifact:      s.Type,
			Severity:      severity,
			Delta:         s.Delta,
			Level:         s.Level,
			Description:   s.Description,
			Cause:         causeFor(s.Type, f, causes),
			LowConfidence: s.LowConfidence,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity > issues[j].Severity
		}
		return issues[i].Artifact < issues[j].Artifact
	})
	if len(issues) > cfg.MaxIssues {
		issues = issues[:cfg.MaxIssues]
	}
	return issues
}

func causeFor(a types.ArtifactType, f Facts, rules []CauseRule) string {
	for _, r := range rules {
		if r.Artifact == a && r.When(f) {
			return r.Cause
		}
	}
	return "transcode parameters need tuning"
}

func recommend(f Facts, cfg Config) []string {
	seen := make(map[string]bool)
	recs := []string{}
	for _, r := range RecommendationRules(cfg) {
		if !r.When(f) {
			continue
		}
		for _, rec := range r.Recommendations {
			if seen[rec] {
				continue
			}
			seen[rec] = true
			recs = append(recs, rec)
		}
	}
	if len(recs) == 0 {
		return []string{acceptableRecommendation}
	}
	if len(recs) > cfg.MaxRecommendations {
		recs = recs[:cfg.MaxRecommendations]
	}
	return recs
}

func summarize(v types.Verdict, f Facts) (string, error) {
	switch v {
	case types.VerdictRegressed:
		if f.HasVMAF() {
			return fmt.Sprintf("transcode regressed: VMAF changed by %+.1f points", *f.VMAFDelta), nil
		}
		return fmt.Sprintf("transcode regressed: PSNR %+.2f dB, SSIM %+.4f", *f.PSNRDelta, *f.SSIMDelta), nil
	case types.VerdictImproved:
		if f.HasVMAF() {
			return fmt.Sprintf("transcode improved: VMAF changed by %+.1f points", *f.VMAFDelta), nil
		}
		return fmt.Sprintf("transcode improved: PSNR %+.2f dB, SSIM %+.4f", *f.PSNRDelta, *f.SSIMDelta), nil
	case types.VerdictMixed:
		return fmt.Sprintf("mixed result: %d artifact(s) worsened, %d improved", f.Worsened, f.Improved), nil
	case types.VerdictEquivalent:
		return "transcode is perceptually equivalent to the source", nil
	default:
		return "", apperrors.NewInternalError(fmt.Sprintf("unhandled verdict %d", uint8(v)))
	}
}

func notes(in Input, f Facts, cfg Config) []string {
	var out []string
	if f.VMAFMean != nil && *f.VMAFMean < cfg.LowVMAF {
		out = append(out, fmt.Sprintf("VMAF mean %.1f is below %.0f; visible quality loss is likely", *f.VMAFMean, cfg.LowVMAF))
	}
	if f.PSNRYMean != nil && *f.PSNRYMean < cfg.LowPSNR {
		out = append(out, fmt.Sprintf("luma PSNR mean %.2f dB is below %.0f dB", *f.PSNRYMean, cfg.LowPSNR))
	}
	if f.NoKeyframes {
		out = append(out, "no keyframes detected in the transcoded stream")
	}
	if f.BitrateRatio != nil && *f.BitrateRatio > 1 {
		out = append(out, fmt.Sprintf("transcode uses %.0f%% more bitrate than the source", (*f.BitrateRatio-1)*100))
	}
	if in.Artifacts != nil {
		out = append(out, in.Artifacts.Warnings...)
	}
	return out
}
