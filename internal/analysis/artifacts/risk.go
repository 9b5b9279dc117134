package artifacts

import (
	"fmt"
	"math"
	"sort"

	"github.com/zsiec/vidqa/internal/analysis/types"
)

// RiskLevel is the overall artifact risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	maxDominantIssues = 3
	maxLikelyCauses   = 3
)

// RiskSummary condenses scores into an overall risk and its drivers.
type RiskSummary struct {
	OverallRisk    RiskLevel            `json:"overall_risk"`
	DominantIssues []types.ArtifactType `json:"dominant_issues"`
	LikelyCauses   []string             `json:"likely_causes"`
}

// causesByArtifact lists the usual encoder-side causes for an artifact
// that got worse, most likely first.
var causesByArtifact = map[types.ArtifactType][]string{
	types.ArtifactBlocking:       {"insufficient bitrate", "quantization parameter too high"},
	types.ArtifactDarkDetailLoss: {"VBV constraints too tight", "dark-region quantization misconfigured"},
	types.ArtifactBlur:           {"encoder preset too aggressive"},
	types.ArtifactRinging:        {"high-frequency quantization around sharp edges"},
	types.ArtifactBanding:        {"insufficient color depth", "quantization step too large"},
}

const genericCause = "transcode parameters need tuning"

// summarizeCompare counts confident artifacts that worsened by more than
// SignificantDelta: three or more is high risk, one or more medium.
func summarizeCompare(scores []Score, cfg Config) RiskSummary {
	var worse []Score
	for _, s := range scores {
		if s.Worsened() && !s.LowConfidence && *s.Delta > cfg.SignificantDelta {
			worse = append(worse, s)
		}
	}
	sort.SliceStable(worse, func(i, j int) bool { return *worse[i].Delta > *worse[j].Delta })

	summary := RiskSummary{
		OverallRisk:    riskFor(len(worse), 3),
		DominantIssues: []types.ArtifactType{},
		LikelyCauses:   []string{},
	}
	for _, s := range worse {
		if len(summary.DominantIssues) < maxDominantIssues {
			summary.DominantIssues = append(summary.DominantIssues, s.Type)
		}
		for _, c := range causesByArtifact[s.Type] {
			summary.LikelyCauses = appendUnique(summary.LikelyCauses, c)
		}
	}
	if len(summary.LikelyCauses) == 0 {
		summary.LikelyCauses = append(summary.LikelyCauses, genericCause)
	}
	if len(summary.LikelyCauses) > maxLikelyCauses {
		summary.LikelyCauses = summary.LikelyCauses[:maxLikelyCauses]
	}
	return summary
}

// summarizeSingle counts confident high-level artifacts: two or more is
// high risk, one medium.
func summarizeSingle(scores []Score) RiskSummary {
	var high []Score
	for _, s := range scores {
		if s.Level == types.LevelHigh && !s.LowConfidence {
			high = append(high, s)
		}
	}
	sort.SliceStable(high, func(i, j int) bool { return high[i].Severity > high[j].Severity })

	summary := RiskSummary{
		OverallRisk:    riskFor(len(high), 2),
		DominantIssues: []types.ArtifactType{},
		LikelyCauses:   []string{},
	}
	for i, s := range high {
		if i == maxDominantIssues {
			break
		}
		summary.DominantIssues = append(summary.DominantIssues, s.Type)
	}
	return summary
}

func riskFor(count, highAt int) RiskLevel {
	switch {
	case count >= highAt:
		return RiskHigh
	case count >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

func compareNotes(scores []Score, risk RiskSummary, cfg Config) []string {
	notes := []string{}
	if risk.OverallRisk == RiskHigh {
		notes = append(notes, "transcode quality dropped noticeably; re-evaluate encoding parameters")
	}
	for _, s := range scores {
		d := *s.Delta
		switch {
		case s.LowConfidence:
			notes = append(notes, fmt.Sprintf("%s: low confidence, too little texture for a reliable comparison (delta %+.2f)", s.Type, d))
		case s.Worsened() && d > cfg.NotableDelta:
			notes = append(notes, fmt.Sprintf("%s worsened significantly (delta: %+.2f)", s.Type, d))
		case s.Impact == types.ImpactBetter && math.Abs(d) > cfg.NotableDelta:
			notes = append(notes, fmt.Sprintf("%s improved (delta: %+.2f)", s.Type, d))
		}
	}
	return notes
}

func singleNotes(scores []Score) []string {
	notes := []string{}
	for _, s := range scores {
		switch {
		case s.LowConfidence:
			notes = append(notes, fmt.Sprintf("%s: low confidence, too little texture for a reliable score", s.Type))
		case s.Level == types.LevelHigh:
			notes = append(notes, fmt.Sprintf("%s risk is high", s.Type))
		}
	}
	return notes
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
