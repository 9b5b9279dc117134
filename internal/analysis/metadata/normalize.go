// Package metadata maps raw probe descriptions onto types.VideoMetadata.
package metadata

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// RawDescription is a loosely typed key/value description of one media
// stream and its container. Values may be numbers or numeric strings, and
// stream or container fields may be nested under "stream", "video" or
// "format" the way ffprobe groups them.
type RawDescription map[string]any

// field aliases in lookup order
var (
	containerKeys = []string{"container", "format_name"}
	durationKeys  = []string{"duration", "duration_seconds"}
	sizeKeys      = []string{"size", "file_size"}
	bitrateKeys   = []string{"bit_rate", "bitrate"}
	codecKeys     = []string{"codec", "codec_name"}
	profileKeys   = []string{"profile"}
	levelKeys     = []string{"level"}
	widthKeys     = []string{"width", "coded_width"}
	heightKeys    = []string{"height", "coded_height"}
	frameRateKeys = []string{"frame_rate", "r_frame_rate", "avg_frame_rate", "fps"}
	pixFmtKeys    = []string{"pix_fmt", "pixel_format"}
)

// maxDimension bounds width and height.
const maxDimension = 65535

// sections searched after the top level
var nestedSections = []string{"stream", "video", "format"}

// Normalize builds a VideoMetadata from raw. Duration, width and height are
// required and must be positive; profile and level fall back to
// types.Unknown. A field that is present but cannot be coerced is rejected
// rather than zeroed.
func Normalize(raw RawDescription) (types.VideoMetadata, error) {
	var md types.VideoMetadata

	if raw == nil {
		return md, apperrors.NewMalformedInputError("", "metadata description is empty")
	}

	duration, err := requiredFloat(raw, "duration", durationKeys)
	if err != nil {
		return md, err
	}
	width, err := requiredInt(raw, "width", widthKeys)
	if err != nil {
		return md, err
	}
	height, err := requiredInt(raw, "height", heightKeys)
	if err != nil {
		return md, err
	}

	size, err := optionalInt(raw, "size", sizeKeys)
	if err != nil {
		return md, err
	}
	bitrate, err := optionalInt(raw, "bitrate", bitrateKeys)
	if err != nil {
		return md, err
	}
	frameRate, err := frameRateOf(raw)
	if err != nil {
		return md, err
	}

	pixFmt := stringOr(raw, pixFmtKeys, types.Unknown)

	md = types.VideoMetadata{
		Container:   containerName(stringOr(raw, containerKeys, types.Unknown)),
		Duration:    duration,
		Size:        size,
		BitRate:     bitrate,
		Codec:       stringOr(raw, codecKeys, types.Unknown),
		Profile:     stringOr(raw, profileKeys, types.Unknown),
		Level:       levelOf(raw),
		Width:       int(width),
		Height:      int(height),
		FrameRate:   frameRate,
		FPS:         math.Round(frameRate.Float64()*1000) / 1000,
		PixelFormat: pixFmt,
		BitDepth:    BitDepth(pixFmt),
	}
	return md, nil
}

// BitDepth derives the sample bit depth from a pixel format name such as
// "yuv420p10le" or "p010le". Only a trailing depth counts, so "nv12" and
// "yuv410p" stay 8-bit. Formats without an explicit depth are 8-bit.
func BitDepth(pixFmt string) int {
	name := strings.TrimSuffix(strings.TrimSuffix(pixFmt, "le"), "be")
	endian := name != pixFmt

	digits := name[len(strings.TrimRight(name, "0123456789")):]
	if digits == "" {
		return 8
	}
	prefix := name[:len(name)-len(digits)]
	if !endian && !strings.HasSuffix(prefix, "p") {
		// packed or semi-planar names like nv12 and rgb24 carry a layout, not a depth
		return 8
	}
	if prefix == "p" && len(digits) == 3 {
		// p010, p210, p416: chroma layout digit then depth
		digits = digits[1:]
	}

	d, err := strconv.Atoi(digits)
	if err != nil {
		return 8
	}
	switch d {
	case 9, 10, 12, 14, 16:
		return d
	case 48, 64:
		return 16
	default:
		return 8
	}
}

// containerName keeps the first name of a demuxer list ("mov,mp4,m4a" -> "mov").
func containerName(s string) string {
	name, _, _ := strings.Cut(s, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Unknown
	}
	return name
}

func lookup(raw RawDescription, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	for _, section := range nestedSections {
		nested, ok := asMap(raw[section])
		if !ok {
			continue
		}
		for _, k := range keys {
			if v, ok := nested[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawDescription:
		return m, true
	default:
		return nil, false
	}
}

func requiredFloat(raw RawDescription, field string, keys []string) (float64, error) {
	v, ok := lookup(raw, keys)
	if !ok {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s is required", field))
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s: %v", field, err))
	}
	if f <= 0 {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s must be positive, got %v", field, f))
	}
	return f, nil
}

func requiredInt(raw RawDescription, field string, keys []string) (int64, error) {
	f, err := requiredFloat(raw, field, keys)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s must be an integer, got %v", field, f))
	}
	if f > maxDimension {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s must not exceed %d, got %v", field, maxDimension, f))
	}
	return int64(f), nil
}

func optionalInt(raw RawDescription, field string, keys []string) (int64, error) {
	v, ok := lookup(raw, keys)
	if !ok {
		return 0, nil
	}
	if s, isString := v.(string); isString && (s == "" || s == "N/A") {
		return 0, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s: %v", field, err))
	}
	if f < 0 {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s must not be negative, got %v", field, f))
	}
	if f >= float64(math.MaxInt64) {
		return 0, apperrors.NewMalformedInputError(field, fmt.Sprintf("%s is out of range: %v", field, f))
	}
	return int64(f), nil
}

func stringOr(raw RawDescription, keys []string, fallback string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}

// levelOf renders numeric levels as strings; ffprobe reports -99 when the
// level is not known.
func levelOf(raw RawDescription) string {
	v, ok := lookup(raw, levelKeys)
	if !ok {
		return types.Unknown
	}
	if f, err := toFloat(v); err == nil {
		if f < 0 {
			return types.Unknown
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return types.Unknown
	}
	return s
}

func frameRateOf(raw RawDescription) (types.Rational, error) {
	v, ok := lookup(raw, frameRateKeys)
	if !ok {
		return types.Rational{}, nil
	}

	var (
		r   types.Rational
		err error
	)
	switch fr := v.(type) {
	case string:
		// ffprobe reports "0/0" when the rate is undetermined
		if fr == "" || fr == "0/0" {
			return types.Rational{}, nil
		}
		r, err = types.ParseRational(fr)
	case map[string]any:
		var num, den float64
		if num, err = toFloat(fr["num"]); err == nil {
			den, err = toFloat(fr["den"])
		}
		if err == nil && den == 0 {
			err = fmt.Errorf("zero denominator")
		}
		r = types.Rational{Num: int(num), Den: int(den)}
	default:
		var f float64
		if f, err = toFloat(fr); err == nil {
			r, err = types.RationalFromFloat(f)
		}
	}
	if err != nil {
		return types.Rational{}, apperrors.NewMalformedInputError("frame_rate", fmt.Sprintf("frame_rate: %v", err))
	}
	if r.Float64() < 0 {
		return types.Rational{}, apperrors.NewMalformedInputError("frame_rate", "frame_rate must not be negative")
	}
	return r, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", f)
	}
	return f, nil
}
