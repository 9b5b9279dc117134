package report

import (
	"github.com/zsiec/vidqa/internal/analysis/types"
)

// VerdictRule is one row of the verdict decision table.
type VerdictRule struct {
	Name    string
	Match   func(Facts) bool
	Verdict types.Verdict
}

// CauseRule attributes a likely cause to an artifact issue.
type CauseRule struct {
	Artifact types.ArtifactType
	When     func(Facts) bool
	Cause    string
}

// RecommendationRule maps facts to encoder advice.
type RecommendationRule struct {
	Name            string
	When            func(Facts) bool
	Recommendations []string
}

func always(Facts) bool { return true }

// VerdictRules returns the decision table for cfg. The first matching rule
// decides the verdict; the last rule always matches.
func VerdictRules(cfg Config) []VerdictRule {
	return []VerdictRule{
		{
			Name:    "vmaf_regression",
			Match:   func(f Facts) bool { return f.HasVMAF() && *f.VMAFDelta < -cfg.VMAFRegressionThreshold },
			Verdict: types.VerdictRegressed,
		},
		{
			Name:    "vmaf_improvement",
			Match:   func(f Facts) bool { return f.HasVMAF() && *f.VMAFDelta > cfg.VMAFImprovementThreshold },
			Verdict: types.VerdictImproved,
		},
		{
			Name: "psnr_ssim_regression",
			Match: func(f Facts) bool {
				return !f.HasVMAF() && f.PSNRDelta != nil && f.SSIMDelta != nil &&
					*f.PSNRDelta < -cfg.PSNRThreshold && *f.SSIMDelta < -cfg.SSIMThreshold
			},
			Verdict: types.VerdictRegressed,
		},
		{
			Name: "psnr_ssim_improvement",
			Match: func(f Facts) bool {
				return !f.HasVMAF() && f.PSNRDelta != nil && f.SSIMDelta != nil &&
					*f.PSNRDelta > cfg.PSNRThreshold && *f.SSIMDelta > cfg.SSIMThreshold
			},
			Verdict: types.VerdictImproved,
		},
		{
			Name:    "artifacts_mixed",
			Match:   func(f Facts) bool { return f.Worsened > 0 && f.Improved > 0 },
			Verdict: types.VerdictMixed,
		},
		{
			Name:    "default",
			Match:   always,
			Verdict: types.VerdictEquivalent,
		},
	}
}

// CauseRules returns the cause attribution table for cfg.
func CauseRules(cfg Config) []CauseRule {
	lowBitrate := func(f Facts) bool {
		return f.BitrateRatio != nil && *f.BitrateRatio < cfg.LowBitrateRatio
	}
	return []CauseRule{
		{types.ArtifactBlocking, lowBitrate, "insufficient bitrate for chosen resolution"},
		{types.ArtifactBlocking, always, "quantization parameter too high"},
		{types.ArtifactBanding, func(f Facts) bool { return f.TranscodedBitDepth == 8 }, "color depth insufficient, consider 10-bit encoding"},
		{types.ArtifactBanding, always, "quantization step too coarse in smooth gradients"},
		{types.ArtifactBlur, func(f Facts) bool { return f.Downscaled }, "resolution downscaled during transcode"},
		{types.ArtifactBlur, always, "encoder preset too aggressive"},
		{types.ArtifactRinging, always, "high-frequency quantization around sharp edges"},
		{types.ArtifactDarkDetailLoss, always, "VBV constraints too tight or dark-region quantization too coarse"},
	}
}

// RecommendationRules returns the recommendation table for cfg. Rules are
// evaluated in order and their output is deduplicated.
func RecommendationRules(cfg Config) []RecommendationRule {
	strong := func(a types.ArtifactType) func(Facts) bool {
		return func(f Facts) bool {
			is, ok := f.Issue(a)
			return ok && is.Severity > cfg.StrongIssueSeverity
		}
	}
	has := func(a types.ArtifactType) func(Facts) bool {
		return func(f Facts) bool { return f.HasIssue(a) }
	}
	return []RecommendationRule{
		{
			Name: "blocking",
			When: strong(types.ArtifactBlocking),
			Recommendations: []string{
				"lower CRF to raise the quality target",
				"reduce the quantization parameter (QP)",
			},
		},
		{
			Name: "dark_detail_loss",
			When: strong(types.ArtifactDarkDetailLoss),
			Recommendations: []string{
				"relax VBV maxrate/bufsize constraints",
				"enable adaptive quantization (aq-mode=3)",
				"lower the quantizer offset for dark regions",
			},
		},
		{
			Name: "blur_downscaled",
			When: func(f Facts) bool { return f.HasIssue(types.ArtifactBlur) && f.Downscaled },
			Recommendations: []string{
				"keep the source resolution or use a sharper scaler (lanczos)",
			},
		},
		{
			Name: "blur",
			When: strong(types.ArtifactBlur),
			Recommendations: []string{
				"use a slower, more conservative encoder preset",
				"raise the bitrate",
			},
		},
		{
			Name: "banding_8bit",
			When: func(f Facts) bool { return f.HasIssue(types.ArtifactBanding) && f.TranscodedBitDepth == 8 },
			Recommendations: []string{
				"encode at 10-bit color depth (yuv420p10le)",
			},
		},
		{
			Name: "banding",
			When: has(types.ArtifactBanding),
			Recommendations: []string{
				"use finer quantization steps for smooth gradients",
			},
		},
		{
			Name: "ringing",
			When: has(types.ArtifactRinging),
			Recommendations: []string{
				"reduce psycho-visual sharpening (lower psy-rd)",
			},
		},
		{
			Name: "low_bitrate",
			When: func(f Facts) bool {
				return f.BitrateRatio != nil && *f.BitrateRatio < cfg.LowBitrateRatio && f.hasVerdict(types.VerdictRegressed)
			},
			Recommendations: []string{
				"raise the target bitrate; the transcode keeps less than half of the source bitrate",
			},
		},
		{
			Name: "no_keyframes",
			When: func(f Facts) bool { return f.NoKeyframes },
			Recommendations: []string{
				"set an explicit keyframe interval (for example -g at twice the frame rate)",
			},
		},
		{
			Name: "long_gop",
			When: func(f Facts) bool {
				return f.SourceAvgGOP > 0 && f.TranscodedAvgGOP > cfg.LongGOPFactor*f.SourceAvgGOP
			},
			Recommendations: []string{
				"shorten the GOP to keep seek and recovery behaviour close to the source",
			},
		},
	}
}

// acceptableRecommendation is used when no rule applies.
const acceptableRecommendation = "transcode quality is acceptable; parameters can be tuned further to balance quality and bitrate"
