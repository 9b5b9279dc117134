// Package probe runs ffprobe against media files and parses ffprobe and
// ffmpeg metric output into the records the analysis engine consumes.
package probe

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/zsiec/vidqa/internal/analysis/metadata"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/config"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/metrics"
)

// Probe kinds, used as the metrics label.
const (
	KindStreams = "streams"
	KindFrames  = "frames"
	KindVersion = "version"
)

// maxStderr bounds how much probe stderr is attached to errors and logs.
const maxStderr = 2048

// commandFunc runs a binary and returns its stdout and stderr.
type commandFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Runner executes ffprobe with a bounded timeout.
type Runner struct {
	ffprobePath   string
	timeout       time.Duration
	readIntervals string
	logger        *logger.SampledLogger
	run           commandFunc
}

// NewRunner creates a runner from the probe configuration.
func NewRunner(cfg *config.ProbeConfig, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNullLogger()
	}
	path := cfg.FFprobePath
	if path == "" {
		path = "ffprobe"
	}
	return &Runner{
		ffprobePath:   path,
		timeout:       cfg.Timeout,
		readIntervals: cfg.ReadIntervals,
		logger:        logger.NewProbeLogger(log.WithField("component", "probe")),
		run:           execCommand,
	}
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Streams probes the container and first video stream of path.
func (r *Runner) Streams(ctx context.Context, path string) (metadata.RawDescription, error) {
	out, err := r.ffprobe(ctx, KindStreams,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}
	return ParseStreams(out)
}

// Frames lists the frames of the first video stream of path. Rows without a
// usable timestamp are dropped and logged.
func (r *Runner) Frames(ctx context.Context, path string) ([]types.FrameRecord, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "v:0",
		"-show_frames",
		"-show_entries", "frame=pict_type,best_effort_timestamp_time,pkt_pts_time,pts_time,pkt_size",
	}
	if r.readIntervals != "" {
		args = append(args, "-read_intervals", r.readIntervals)
	}
	args = append(args, path)

	out, err := r.ffprobe(ctx, KindFrames, args...)
	if err != nil {
		return nil, err
	}
	return parseFrames(out, r.SkipLogger(logger.CategoryFrameParse, path))
}

// Version returns the first line of `ffprobe -version`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := r.ffprobe(ctx, KindVersion, "-version")
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(string(out), "\n")
	if !strings.Contains(first, "ffprobe version") {
		return "", apperrors.WrapProbeError(fmt.Errorf("unexpected output %q", first), "ffprobe version check failed")
	}
	return strings.TrimSpace(first), nil
}

// SkipLogger returns a SkipFunc that reports dropped rows through the
// sampled probe logger.
func (r *Runner) SkipLogger(category, source string) SkipFunc {
	return func(index int, reason string) {
		r.logger.WarnWithCategory(category, "Skipping unusable probe row", map[string]interface{}{
			"source": source,
			"index":  index,
			"reason": reason,
		})
	}
}

// SkipStats reports how many skipped-row warnings were logged or dropped.
func (r *Runner) SkipStats() map[string]logger.SamplerStats {
	return r.logger.Stats()
}

func (r *Runner) ffprobe(ctx context.Context, kind string, args ...string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, err := r.run(ctx, r.ffprobePath, args...)
	metrics.RecordProbe(kind, time.Since(start).Seconds(), err != nil)
	if err == nil {
		return stdout, nil
	}

	if len(stderr) > 0 {
		r.logger.WarnWithCategory(logger.CategoryProbeStderr, "ffprobe reported errors", map[string]interface{}{
			"kind":   kind,
			"stderr": truncate(string(stderr), maxStderr),
		})
	}

	switch {
	case stderrors.Is(err, exec.ErrNotFound):
		return nil, apperrors.WrapProbeError(err, fmt.Sprintf("%s not found", r.ffprobePath))
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, apperrors.WrapProbeError(ctx.Err(), fmt.Sprintf("ffprobe %s timed out after %s", kind, r.timeout))
	}

	appErr := apperrors.WrapProbeError(err, fmt.Sprintf("ffprobe %s failed", kind))
	if len(stderr) > 0 {
		appErr = appErr.WithDetails(map[string]interface{}{"stderr": truncate(string(stderr), maxStderr)})
	}
	return nil, appErr
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
