package engine

import (
	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/report"
	"github.com/zsiec/vidqa/internal/config"
)

// Default input caps.
const (
	DefaultMaxFrames  = 1_000_000
	DefaultMaxSamples = 1_000_000
)

// Config is the engine configuration passed to every operation.
type Config struct {
	// MaxFrames caps the frames in one frame listing.
	MaxFrames int `json:"max_frames"`
	// MaxSamples caps the values across all samples or signals of one
	// request.
	MaxSamples int              `json:"max_samples"`
	GOP        gop.Config       `json:"gop"`
	Artifacts  artifacts.Config `json:"artifacts"`
	Report     report.Config    `json:"report"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxFrames:  DefaultMaxFrames,
		MaxSamples: DefaultMaxSamples,
		GOP:        gop.DefaultConfig(),
		Artifacts:  artifacts.DefaultConfig(),
		Report:     report.DefaultConfig(),
	}
}

// FromConfig converts the analysis section of the service configuration.
func FromConfig(a *config.AnalysisConfig) Config {
	return Config{
		MaxFrames:  a.MaxFrames,
		MaxSamples: a.MaxSamples,
		GOP: gop.Config{
			MaxKeyframeTimestamps: a.GOP.MaxKeyframeTimestamps,
		},
		Artifacts: artifacts.Config{
			NoiseThreshold:         a.Artifacts.NoiseThreshold,
			SignificantDelta:       a.Artifacts.SignificantDelta,
			NotableDelta:           a.Artifacts.NotableDelta,
			MinSamples:             a.Artifacts.MinSamples,
			LowConfidenceThreshold: a.Artifacts.LowConfidenceThreshold,
			LowConfidenceCeiling:   a.Artifacts.LowConfidenceCeiling,
			AmbiguousBand: artifacts.Bands{
				Blur:           a.Artifacts.AmbiguousBand.Blur,
				Blocking:       a.Artifacts.AmbiguousBand.Blocking,
				Ringing:        a.Artifacts.AmbiguousBand.Ringing,
				Banding:        a.Artifacts.AmbiguousBand.Banding,
				DarkDetailLoss: a.Artifacts.AmbiguousBand.DarkDetailLoss,
			},
		},
		Report: report.Config{
			VMAFRegressionThreshold:  a.Report.VMAFRegressionThreshold,
			VMAFImprovementThreshold: a.Report.VMAFImprovementThreshold,
			PSNRThreshold:            a.Report.PSNRThreshold,
			SSIMThreshold:            a.Report.SSIMThreshold,
			NoiseThreshold:           a.Report.NoiseThreshold,
			LowBitrateRatio:          a.Report.LowBitrateRatio,
			StrongIssueSeverity:      a.Report.StrongIssueSeverity,
			LongGOPFactor:            a.Report.LongGOPFactor,
			MaxIssues:                a.Report.MaxIssues,
			MaxRecommendations:       a.Report.MaxRecommendations,
			LowVMAF:                  a.Report.LowVMAF,
			LowPSNR:                  a.Report.LowPSNR,
		},
	}
}
