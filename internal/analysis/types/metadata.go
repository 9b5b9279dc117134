package types

// Unknown marks an optional metadata field the probe did not report.
const Unknown = "unknown"

// VideoMetadata is the canonical description of one media file's primary
// video stream and its container.
type VideoMetadata struct {
	Container   string   `json:"container"`
	Duration    float64  `json:"duration"` // seconds
	Size        int64    `json:"size"`     // bytes
	BitRate     int64    `json:"bitrate"`  // bits/sec
	Codec       string   `json:"codec"`
	Profile     string   `json:"profile"`
	Level       string   `json:"level"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	FrameRate   Rational `json:"frame_rate"`
	FPS         float64  `json:"fps"`
	PixelFormat string   `json:"pix_fmt"`
	BitDepth    int      `json:"bit_depth"`
}

// Pixels returns the frame area in pixels.
func (m VideoMetadata) Pixels() int {
	return m.Width * m.Height
}
