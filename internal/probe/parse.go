package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/types"
	apperrors "github.com/zsiec/vidqa/internal/errors"
)

// SkipFunc is told about each row or line a parser could not use. index is
// zero-based within the input.
type SkipFunc func(index int, reason string)

// ffprobeOutput is the subset of `-show_format -show_streams` JSON we use.
// Sections are kept loosely typed so metadata.Normalize sees every field.
type ffprobeOutput struct {
	Format  map[string]any   `json:"format"`
	Streams []map[string]any `json:"streams"`
}

// ParseStreams converts ffprobe stream JSON into a description of the
// container and its first video stream.
func ParseStreams(data []byte) (metadata.RawDescription, error) {
	var out ffprobeOutput
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, apperrors.WrapProbeError(err, "failed to parse ffprobe output")
	}

	var video map[string]any
	for _, stream := range out.Streams {
		if stream["codec_type"] == "video" {
			video = stream
			break
		}
	}
	if video == nil {
		return nil, apperrors.NewMalformedInputError("streams", "no video stream found")
	}

	raw := metadata.RawDescription{"stream": video}
	if out.Format != nil {
		raw["format"] = out.Format
		// Container values take precedence over the stream's own duration,
		// size and bitrate, which many muxers omit or estimate.
		for _, key := range []string{"format_name", "duration", "size", "bit_rate"} {
			if v, ok := out.Format[key]; ok && v != nil && v != "N/A" {
				raw[key] = v
			}
		}
	}
	return raw, nil
}

type ffprobeFrames struct {
	Frames []ffprobeFrame `json:"frames"`
}

type ffprobeFrame struct {
	PictType                string `json:"pict_type"`
	BestEffortTimestampTime string `json:"best_effort_timestamp_time"`
	PktPtsTime              string `json:"pkt_pts_time"`
	PtsTime                 string `json:"pts_time"`
	PktSize                 string `json:"pkt_size"`
}

// ParseFrames converts `ffprobe -show_frames` JSON into frame records in
// output order. Frames without a usable timestamp are dropped.
func ParseFrames(data []byte) ([]types.FrameRecord, error) {
	return parseFrames(data, nil)
}

func parseFrames(data []byte, skip SkipFunc) ([]types.FrameRecord, error) {
	var out ffprobeFrames
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperrors.WrapProbeError(err, "failed to parse ffprobe frame listing")
	}

	frames := make([]types.FrameRecord, 0, len(out.Frames))
	for i, f := range out.Frames {
		ts, ok := firstTimestamp(f.BestEffortTimestampTime, f.PktPtsTime, f.PtsTime)
		if !ok {
			report(skip, i, "no timestamp")
			continue
		}

		var size int64
		if f.PktSize != "" {
			n, err := strconv.ParseInt(f.PktSize, 10, 64)
			if err != nil || n < 0 {
				report(skip, i, fmt.Sprintf("invalid pkt_size %q", f.PktSize))
				continue
			}
			size = n
		}

		frames = append(frames, types.FrameRecord{
			Timestamp: ts,
			Type:      types.ParseFrameType(f.PictType),
			Size:      size,
		})
	}
	return frames, nil
}

func firstTimestamp(candidates ...string) (float64, bool) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || c == "N/A" {
			continue
		}
		ts, err := strconv.ParseFloat(c, 64)
		if err != nil || ts < 0 {
			continue
		}
		return ts, true
	}
	return 0, false
}
