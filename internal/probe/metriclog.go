package probe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zsiec/vidqa/internal/analysis/quality"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// infinitePSNR stands in for "inf", which ffmpeg writes for identical planes.
const infinitePSNR = 100.0

// ParsePSNRLog reads an ffmpeg psnr stats_file, one line per frame:
//
//	n:1 mse_avg:0.83 mse_y:1.02 mse_u:0.41 mse_v:0.44 psnr_avg:48.93 psnr_y:48.04 psnr_u:52.00 psnr_v:51.69
//
// It returns psnr_y, psnr_u and psnr_v samples in frame order.
func ParsePSNRLog(r io.Reader, skip SkipFunc) ([]quality.Sample, error) {
	planes := []string{quality.MetricPSNRY, quality.MetricPSNRU, quality.MetricPSNRV}
	values := make(map[string][]float64, len(planes))

	err := scanLines(r, func(i int, line string) {
		fields := keyValues(line)
		parsed := make(map[string]float64, len(planes))
		for _, plane := range planes {
			raw, ok := fields[plane]
			if !ok {
				report(skip, i, fmt.Sprintf("missing %s", plane))
				return
			}
			v, err := psnrValue(raw)
			if err != nil {
				report(skip, i, err.Error())
				return
			}
			parsed[plane] = v
		}
		for plane, v := range parsed {
			values[plane] = append(values[plane], v)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(values[quality.MetricPSNRY]) == 0 {
		return nil, apperrors.NewMalformedInputError("psnr_log", "psnr log contains no frames")
	}

	samples := make([]quality.Sample, 0, len(planes))
	for _, plane := range planes {
		samples = append(samples, quality.Sample{Name: plane, Values: values[plane]})
	}
	return samples, nil
}

func psnrValue(raw string) (float64, error) {
	if strings.EqualFold(raw, "inf") {
		return infinitePSNR, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid psnr value %q", raw)
	}
	if math.IsInf(v, 1) {
		return infinitePSNR, nil
	}
	return v, nil
}

// ParseSSIMLog reads an ffmpeg ssim stats_file, one line per frame:
//
//	n:1 Y:0.995 U:0.997 V:0.997 All:0.996 (23.77)
//
// It returns one ssim sample built from the All field.
func ParseSSIMLog(r io.Reader, skip SkipFunc) ([]quality.Sample, error) {
	var values []float64
	err := scanLines(r, func(i int, line string) {
		raw, ok := keyValues(line)["All"]
		if !ok {
			report(skip, i, "missing All")
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			report(skip, i, fmt.Sprintf("invalid ssim value %q", raw))
			return
		}
		values = append(values, v)
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, apperrors.NewMalformedInputError("ssim_log", "ssim log contains no frames")
	}
	return []quality.Sample{{Name: quality.MetricSSIM, Values: values}}, nil
}

type vmafLog struct {
	Frames []struct {
		FrameNum int                `json:"frameNum"`
		Metrics  map[string]float64 `json:"metrics"`
	} `json:"frames"`
}

// ParseVMAFLog reads a libvmaf log. JSON logs (log_fmt=json) are read from
// frames[].metrics.vmaf; anything else is treated as "frame score" lines.
func ParseVMAFLog(r io.Reader, skip SkipFunc) ([]quality.Sample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.WrapProbeError(err, "failed to read vmaf log")
	}

	var values []float64
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var log vmafLog
		if err := json.Unmarshal(trimmed, &log); err != nil {
			return nil, apperrors.NewMalformedInputError("vmaf_log", fmt.Sprintf("invalid vmaf json: %v", err))
		}
		for i, frame := range log.Frames {
			v, ok := frame.Metrics[quality.MetricVMAF]
			if !ok {
				report(skip, i, "missing vmaf metric")
				continue
			}
			values = append(values, v)
		}
	} else {
		err := scanLines(bytes.NewReader(data), func(i int, line string) {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				report(skip, i, "expected frame and score")
				return
			}
			v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				report(skip, i, fmt.Sprintf("invalid vmaf value %q", fields[len(fields)-1]))
				return
			}
			values = append(values, v)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(values) == 0 {
		return nil, apperrors.NewMalformedInputError("vmaf_log", "vmaf log contains no frames")
	}
	return []quality.Sample{{Name: quality.MetricVMAF, Values: values}}, nil
}

// scanLines calls fn for each non-blank line with its zero-based index.
func scanLines(r io.Reader, fn func(i int, line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(i, line)
	}
	if err := scanner.Err(); err != nil {
		return apperrors.WrapProbeError(err, "failed to read metric log")
	}
	return nil
}

// keyValues splits "k:v k:v" lines. Tokens without a colon are ignored.
func keyValues(line string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(line) {
		k, v, ok := strings.Cut(tok, ":")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func report(skip SkipFunc, i int, reason string) {
	if skip != nil {
		skip(i, reason)
	}
}
