// Package render formats analysis results as styled terminal text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/vidqa/internal/analysis/artifacts"
	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/report"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/engine"
)

const lowConfidenceMark = "(low confidence)"

// Renderer renders results for one output. Colour is used only when the
// output supports it.
type Renderer struct {
	styles styles
}

// New returns a renderer for w.
func New(w io.Writer) *Renderer {
	return &Renderer{styles: newStyles(lipgloss.NewRenderer(w))}
}

// Result renders any engine result. Unknown values are printed with %+v.
func (r *Renderer) Result(v interface{}) string {
	switch res := v.(type) {
	case report.TranscodeReport:
		return r.Report(res)
	case types.VideoMetadata:
		return r.Metadata(res)
	case gop.Stats:
		return r.GOP(res)
	case engine.QualityComparison:
		return r.Quality(res)
	case artifacts.Analysis:
		return r.Artifacts(res)
	default:
		return fmt.Sprintf("%+v\n", v)
	}
}

// Report renders a transcode report.
func (r *Renderer) Report(rep report.TranscodeReport) string {
	var b strings.Builder

	verdict := r.verdictStyle(rep.Verdict).Render(strings.ToUpper(rep.Verdict.String()))
	header := verdict
	if rep.LowConfidence {
		header = lipgloss.JoinHorizontal(lipgloss.Center, verdict, " ", r.styles.muted.Render(lowConfidenceMark))
	}
	b.WriteString(r.styles.title.Render("Transcode report"))
	b.WriteString("\n")
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(r.styles.value.Render(rep.Summary))
	b.WriteString("\n")

	if q := rep.QualityChange; q != nil {
		r.section(&b, "Quality change")
		r.optional(&b, "VMAF delta", q.VMAFDelta, "%+.2f")
		r.optional(&b, "PSNR delta (dB)", q.PSNRDelta, "%+.2f")
		r.optional(&b, "SSIM delta", q.SSIMDelta, "%+.4f")
		r.optional(&b, "Bitrate saving", q.BitrateSavingPercent, "%.1f%%")
		r.optional(&b, "Size ratio", q.SizeRatio, "%.3f")
	}

	if m := rep.Metadata; m != nil {
		r.section(&b, "Metadata")
		r.row(&b, "Codec", changed(m.Source.Codec, m.Transcoded.Codec))
		r.row(&b, "Resolution", changed(
			fmt.Sprintf("%dx%d", m.Source.Width, m.Source.Height),
			fmt.Sprintf("%dx%d", m.Transcoded.Width, m.Transcoded.Height)))
		r.row(&b, "Frame rate", changed(fmt.Sprintf("%.3f", m.Source.FPS), fmt.Sprintf("%.3f", m.Transcoded.FPS)))
	}

	if s := rep.Structure; s != nil {
		r.section(&b, "Frame structure")
		r.row(&b, "Average GOP", fmt.Sprintf("%.1f -> %.1f", s.SourceAvgGOP, s.TranscodedAvgGOP))
		r.row(&b, "Keyframe interval (s)", fmt.Sprintf("%.2f -> %.2f", s.SourceKeyframeInterval, s.TranscodedKeyframeInterval))
		r.row(&b, "B-frame ratio", fmt.Sprintf("%.2f -> %.2f", s.SourceBFrameRatio, s.TranscodedBFrameRatio))
		if s.TranscodedNoKeyframesDetected {
			b.WriteString(r.styles.listItem.Render(r.styles.bad.Render("no keyframes detected in transcode")))
			b.WriteString("\n")
		}
	}

	if risk := rep.ArtifactRisk; risk != nil {
		r.section(&b, "Artifact risk")
		r.row(&b, "Overall", r.riskStyle(risk.OverallRisk).Render(string(risk.OverallRisk)))
	}

	r.section(&b, "Issues")
	if len(rep.Issues) == 0 {
		b.WriteString(r.styles.listItem.Render(r.styles.muted.Render("none")))
		b.WriteString("\n")
	}
	for _, issue := range rep.Issues {
		line := fmt.Sprintf("%s %s: %s (%s)",
			r.levelStyle(issue.Level).Render("●"), issue.Artifact, issue.Description, issue.Cause)
		if issue.LowConfidence {
			line += " " + r.styles.muted.Render(lowConfidenceMark)
		}
		b.WriteString(r.styles.listItem.Render(line))
		b.WriteString("\n")
	}

	if len(rep.Recommendations) > 0 {
		r.section(&b, "Recommendations")
		for i, rec := range rep.Recommendations {
			b.WriteString(r.styles.listItem.Render(fmt.Sprintf("%d. %s", i+1, rec)))
			b.WriteString("\n")
		}
	}

	if len(rep.Notes) > 0 {
		r.section(&b, "Notes")
		for _, note := range rep.Notes {
			b.WriteString(r.styles.listItem.Render(r.styles.muted.Render(note)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// Metadata renders normalized metadata.
func (r *Renderer) Metadata(md types.VideoMetadata) string {
	var b strings.Builder
	b.WriteString(r.styles.title.Render("Video metadata"))
	b.WriteString("\n")
	r.row(&b, "Container", md.Container)
	r.row(&b, "Codec", fmt.Sprintf("%s (%s, level %s)", md.Codec, md.Profile, md.Level))
	r.row(&b, "Resolution", fmt.Sprintf("%dx%d", md.Width, md.Height))
	r.row(&b, "Frame rate", fmt.Sprintf("%s (%.3f fps)", md.FrameRate, md.FPS))
	r.row(&b, "Duration", fmt.Sprintf("%.3fs", md.Duration))
	r.row(&b, "Bitrate", formatBitrate(md.BitRate))
	r.row(&b, "Pixel format", fmt.Sprintf("%s (%d-bit)", md.PixelFormat, md.BitDepth))
	return b.String()
}

// GOP renders frame structure statistics.
func (r *Renderer) GOP(s gop.Stats) string {
	var b strings.Builder
	b.WriteString(r.styles.title.Render("Frame structure"))
	b.WriteString("\n")
	if s.InsufficientSignal {
		b.WriteString(r.styles.warn.Render("insufficient signal: no frames to analyze"))
		b.WriteString("\n")
		return b.String()
	}
	r.row(&b, "Frames", fmt.Sprintf("%d (I %d, P %d, B %d, other %d)",
		s.TotalFrames, s.Counts.I, s.Counts.P, s.Counts.B, s.Counts.Other))
	r.row(&b, "Completed GOPs", fmt.Sprintf("%d", s.GOPCount))
	r.row(&b, "GOP length", fmt.Sprintf("avg %.1f, min %d, max %d", s.AvgGOPLength, s.MinGOPLength, s.MaxGOPLength))
	r.row(&b, "Keyframe interval", fmt.Sprintf("%.3fs", s.AvgKeyframeInterval))
	if s.NoKeyframeDetected {
		b.WriteString(r.styles.bad.Render("no keyframes detected"))
		b.WriteString("\n")
	}
	return b.String()
}

// Quality renders a quality metric comparison.
func (r *Renderer) Quality(q engine.QualityComparison) string {
	var b strings.Builder
	b.WriteString(r.styles.title.Render("Quality metrics"))
	b.WriteString("\n")
	for _, name := range q.Distorted.Metrics() {
		s := q.Distorted.Summaries[name]
		line := fmt.Sprintf("mean %.3f, min %.3f, p5 %.3f, median %.3f", s.Mean, s.Min, s.P5, s.Median)
		if d, ok := q.Deltas[name]; ok {
			line += ", delta " + r.deltaStyle(d.Delta).Render(fmt.Sprintf("%+.3f", d.Delta))
		}
		r.row(&b, name, line)
	}
	for _, w := range q.Distorted.Warnings {
		b.WriteString(r.styles.warn.Render(w))
		b.WriteString("\n")
	}
	return b.String()
}

// Artifacts renders an artifact analysis.
func (r *Renderer) Artifacts(a artifacts.Analysis) string {
	var b strings.Builder
	b.WriteString(r.styles.title.Render(fmt.Sprintf("Artifacts (%s)", a.Mode)))
	b.WriteString("\n")
	r.row(&b, "Overall risk", r.riskStyle(a.Risk.OverallRisk).Render(string(a.Risk.OverallRisk)))
	for _, s := range a.Scores {
		line := fmt.Sprintf("%s %.2f", r.levelStyle(s.Level).Render(string(s.Level)), s.Severity)
		if s.Delta != nil {
			line += fmt.Sprintf(", delta %+.2f (%s)", *s.Delta, s.Impact)
		}
		if s.LowConfidence {
			line += " " + r.styles.muted.Render(lowConfidenceMark)
		}
		r.row(&b, s.Type.String(), line)
	}
	for _, note := range a.Notes {
		b.WriteString(r.styles.listItem.Render(r.styles.muted.Render(note)))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) section(b *strings.Builder, title string) {
	b.WriteString(r.styles.section.Render(title))
	b.WriteString("\n")
}

func (r *Renderer) row(b *strings.Builder, label, value string) {
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, r.styles.label.Render(label), r.styles.value.Render(value)))
	b.WriteString("\n")
}

func (r *Renderer) optional(b *strings.Builder, label string, v *float64, format string) {
	if v == nil {
		return
	}
	r.row(b, label, fmt.Sprintf(format, *v))
}

func (r *Renderer) verdictStyle(v types.Verdict) lipgloss.Style {
	switch v {
	case types.VerdictImproved:
		return r.styles.verdict.Foreground(Success).BorderForeground(Success)
	case types.VerdictRegressed:
		return r.styles.verdict.Foreground(Error).BorderForeground(Error)
	case types.VerdictMixed:
		return r.styles.verdict.Foreground(Warning).BorderForeground(Warning)
	default:
		return r.styles.verdict.Foreground(Primary).BorderForeground(Primary)
	}
}

func (r *Renderer) levelStyle(l types.Level) lipgloss.Style {
	switch l {
	case types.LevelHigh:
		return r.styles.bad
	case types.LevelMedium:
		return r.styles.warn
	default:
		return r.styles.good
	}
}

func (r *Renderer) riskStyle(l artifacts.RiskLevel) lipgloss.Style {
	switch l {
	case artifacts.RiskHigh:
		return r.styles.bad
	case artifacts.RiskMedium:
		return r.styles.warn
	default:
		return r.styles.good
	}
}

// deltaStyle colours a metric delta where higher is better.
func (r *Renderer) deltaStyle(d float64) lipgloss.Style {
	switch {
	case d < 0:
		return r.styles.bad
	case d > 0:
		return r.styles.good
	default:
		return r.styles.value
	}
}

func changed(from, to string) string {
	if from == to {
		return from
	}
	return from + " -> " + to
}

func formatBitrate(bps int64) string {
	switch {
	case bps <= 0:
		return types.Unknown
	case bps >= 1_000_000:
		return fmt.Sprintf("%.2f Mb/s", float64(bps)/1e6)
	default:
		return fmt.Sprintf("%.0f kb/s", float64(bps)/1e3)
	}
}
