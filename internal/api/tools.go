package api

import "github.com/zsiec/vidqa/internal/engine"

// Tool describes one analysis tool exposed over HTTP.
type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional,omitempty"`
}

// Tools lists every tool in display order.
var Tools = []Tool{
	{
		Name:        engine.OpVideoMetadata,
		Description: "Normalize a probe description of one media file into canonical video metadata.",
		Required:    []string{"metadata"},
	},
	{
		Name:        engine.OpGOPStructure,
		Description: "Analyze frame type distribution, GOP lengths and keyframe spacing of a frame listing.",
		Required:    []string{"frames"},
	},
	{
		Name:        engine.OpQualityMetrics,
		Description: "Summarize per-frame full-reference metrics (VMAF, PSNR, SSIM) and compare them with a second encode.",
		Required:    []string{"distorted"},
		Optional:    []string{"reference"},
	},
	{
		Name:        engine.OpArtifacts,
		Description: "Score compression artifacts from proxy signals, alone or against a reference.",
		Required:    []string{"target"},
		Optional:    []string{"reference"},
	},
	{
		Name:        engine.OpTranscodeSummary,
		Description: "Synthesize a verdict, issues and recommendations for a transcode from any available analyses.",
		Required:    []string{},
		Optional: []string{
			"source_metadata", "transcoded_metadata", "source_gop", "transcoded_gop",
			"reference_metrics", "transcoded_metrics", "metric_deltas", "artifacts",
			"source", "transcoded", "source_frames", "transcoded_frames",
			"quality_samples", "source_signals", "transcoded_signals",
		},
	},
}

// LookupTool returns the tool named name.
func LookupTool(name string) (Tool, bool) {
	for _, t := range Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
