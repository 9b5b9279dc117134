package engine

import (
	"fmt"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/report"
	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// Operation names. They double as tool names on the HTTP surface.
const (
	OpVideoMetadata    = "analyze_video_metadata"
	OpGOPStructure     = "analyze_gop_structure"
	OpQualityMetrics   = "compare_quality_metrics"
	OpArtifacts        = "analyze_artifacts"
	OpTranscodeSummary = "summarize_transcode_comparison"
)

// Operations lists every operation in display order.
var Operations = []string{
	OpVideoMetadata,
	OpGOPStructure,
	OpQualityMetrics,
	OpArtifacts,
	OpTranscodeSummary,
}

// MissingParameter is the error for an absent required request field.
func MissingParameter(name string) error {
	return apperrors.NewValidationError(fmt.Sprintf("missing required parameter: %s", name)).
		WithDetails(map[string]interface{}{"parameter": name})
}

// MetadataRequest asks for one stream description to be normalized.
type MetadataRequest struct {
	Metadata metadata.RawDescription `json:"metadata"`
}

// Validate checks required fields.
func (r MetadataRequest) Validate() error {
	if r.Metadata == nil {
		return MissingParameter("metadata")
	}
	return nil
}

// GOPRequest carries one ordered frame listing. An empty, non-nil listing
// is valid and yields an insufficient-signal result.
type GOPRequest struct {
	Frames []types.FrameRecord `json:"frames"`
}

// Validate checks required fields.
func (r GOPRequest) Validate() error {
	if r.Frames == nil {
		return MissingParameter("frames")
	}
	return nil
}

// QualityRequest carries full-reference metric samples of a distorted
// stream and, optionally, the same metrics for a second encode to compare
// against.
type QualityRequest struct {
	Distorted []quality.Sample `json:"distorted"`
	Reference []quality.Sample `json:"reference,omitempty"`
}

// Validate checks required fields.
func (r QualityRequest) Validate() error {
	if r.Distorted == nil {
		return MissingParameter("distorted")
	}
	return nil
}

func (r QualityRequest) records() int {
	return countSamples(r.Distorted) + countSamples(r.Reference)
}

// QualityComparison is the result of compare_quality_metrics.
type QualityComparison struct {
	Distorted quality.Result  `json:"distorted"`
	Reference *quality.Result `json:"reference,omitempty"`
	// Deltas holds distorted-minus-reference means for metrics on both sides.
	Deltas map[string]quality.Delta `json:"deltas,omitempty"`
}

// ArtifactsRequest carries proxy signals of a target stream and, for
// comparison mode, of its reference.
type ArtifactsRequest struct {
	Target    artifacts.Signals `json:"target"`
	Reference artifacts.Signals `json:"reference,omitempty"`
}

// Validate checks required fields.
func (r ArtifactsRequest) Validate() error {
	if r.Target == nil {
		return MissingParameter("target")
	}
	return nil
}

func (r ArtifactsRequest) records() int {
	return countSignals(r.Target) + countSignals(r.Reference)
}

// SummaryRequest carries anything known about a source and its transcode.
// Derived inputs (metadata, GOP stats, summaries, artifact analysis) are
// used as given; raw inputs are analyzed first when the derived field for
// the same stream is absent.
type SummaryRequest struct {
	report.Input

	Source     metadata.RawDescription `json:"source,omitempty"`
	Transcoded metadata.RawDescription `json:"transcoded,omitempty"`

	SourceFrames     []types.FrameRecord `json:"source_frames,omitempty"`
	TranscodedFrames []types.FrameRecord `json:"transcoded_frames,omitempty"`

	// QualitySamples are full-reference samples of the transcode measured
	// against the source.
	QualitySamples []quality.Sample `json:"quality_samples,omitempty"`

	SourceSignals     artifacts.Signals `json:"source_signals,omitempty"`
	TranscodedSignals artifacts.Signals `json:"transcoded_signals,omitempty"`
}

func (r SummaryRequest) records() int {
	return len(r.SourceFrames) + len(r.TranscodedFrames) +
		countSamples(r.QualitySamples) +
		countSignals(r.SourceSignals) + countSignals(r.TranscodedSignals)
}

func countSamples(samples []quality.Sample) int {
	n := 0
	for _, s := range samples {
		n += len(s.Values)
	}
	return n
}

func countSignals(signals artifacts.Signals) int {
	n := 0
	for _, v := range signals {
		n += len(v)
	}
	return n
}
