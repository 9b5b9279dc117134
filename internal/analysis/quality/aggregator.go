// Package quality reduces per-frame objective quality scores (PSNR, SSIM,
// VMAF) to summary statistics.
package quality

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// Well-known metric names.
const (
	MetricPSNRY   = "psnr_y"
	MetricPSNRU   = "psnr_u"
	MetricPSNRV   = "psnr_v"
	MetricPSNRAvg = "psnr_avg"
	MetricSSIM    = "ssim"
	MetricVMAF    = "vmaf"
)

// Sample is a named sequence of per-frame or per-segment scores.
type Sample struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Summary describes one metric's distribution. P1 and P5 capture the
// worst-case dips that the mean hides.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P1     float64 `json:"p1"`
	P5     float64 `json:"p5"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	// HarmonicMean is set only when every value is positive.
	HarmonicMean *float64 `json:"harmonic_mean,omitempty"`
}

// Result maps metric names to summaries. A metric that was not measured
// has no entry.
type Result struct {
	Summaries map[string]Summary `json:"summaries"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// Metrics returns the summarized metric names in sorted order.
func (r Result) Metrics() []string {
	names := make([]string, 0, len(r.Summaries))
	for name := range r.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregate summarizes each sample independently. Samples with no values
// are treated as not measured and reported as warnings; the call fails with
// an insufficient signal error only when nothing at all was measured.
func Aggregate(samples []Sample) (Result, error) {
	res := Result{Summaries: make(map[string]Summary, len(samples))}
	seen := make(map[string]bool, len(samples))

	for _, s := range samples {
		if s.Name == "" {
			return Result{}, apperrors.NewMalformedInputError("name", "metric sample has no name")
		}
		if seen[s.Name] {
			return Result{}, apperrors.NewMalformedInputError(s.Name, fmt.Sprintf("duplicate metric %q", s.Name))
		}
		seen[s.Name] = true

		if len(s.Values) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no values measured", s.Name))
			continue
		}

		summary, err := Summarize(s.Values)
		if err != nil {
			return Result{}, apperrors.NewMalformedInputError(s.Name, fmt.Sprintf("%s: %v", s.Name, err))
		}
		res.Summaries[s.Name] = summary
	}

	if len(res.Summaries) == 0 {
		msg := "no quality metrics measured"
		if len(res.Warnings) > 0 {
			msg = fmt.Sprintf("all quality metrics missing: %v", res.Warnings)
		}
		return res, apperrors.NewInsufficientSignalError(msg)
	}
	return res, nil
}

// Summarize computes the summary of a non-empty value sequence. Values must
// be finite.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("no values")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, invSum float64
	allPositive := true
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Summary{}, fmt.Errorf("value %d is not finite", i)
		}
		sum += v
		if v > 0 {
			invSum += 1 / v
		} else {
			allPositive = false
		}
	}

	n := float64(len(values))
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	s := Summary{
		Count:  len(values),
		Mean:   mean,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P1:     Percentile(sorted, 1),
		P5:     Percentile(sorted, 5),
		Median: Percentile(sorted, 50),
		StdDev: math.Sqrt(sq / n),
	}
	if allPositive {
		hm := n / invSum
		s.HarmonicMean = &hm
	}
	return s, nil
}

// Percentile returns the p-th percentile of an ascending slice using linear
// interpolation between the closest order statistics (rank p/100*(n-1)).
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

// Delta compares one metric across a reference and a target.
type Delta struct {
	Reference float64 `json:"reference"`
	Target    float64 `json:"target"`
	Delta     float64 `json:"delta"`
}

// Compare returns target-minus-reference mean deltas for every metric
// summarized on both sides.
func Compare(reference, target map[string]Summary) map[string]Delta {
	out := make(map[string]Delta)
	for name, ref := range reference {
		tgt, ok := target[name]
		if !ok {
			continue
		}
		out[name] = Delta{
			Reference: ref.Mean,
			Target:    tgt.Mean,
			Delta:     tgt.Mean - ref.Mean,
		}
	}
	return out
}
