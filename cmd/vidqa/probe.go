package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/vidqa/internal/analysis/gop"
	"github.com/zsiec/vidqa/internal/analysis/quality"
	"github.com/zsiec/vidqa/internal/analysis/types"
	"github.com/zsiec/vidqa/internal/engine"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/probe"
	"github.com/zsiec/vidqa/internal/render"
)

// probeReport is the output of the probe command.
type probeReport struct {
	File     string                    `json:"file"`
	Metadata types.VideoMetadata       `json:"metadata"`
	GOP      *gop.Stats                `json:"gop,omitempty"`
	Quality  *engine.QualityComparison `json:"quality,omitempty"`
}

type metricLogs struct {
	psnr string
	ssim string
	vmaf string
}

func newProbeCmd(opts *globalOptions) *cobra.Command {
	var (
		logs       metricLogs
		skipFrames bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Probe a media file with ffprobe and analyze it",
		Long: `Runs ffprobe on the file, normalizes its metadata and analyzes its frame structure. ` +
			`ffmpeg psnr, ssim and libvmaf logs for the same file can be given to summarize its quality.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, log, err := opts.load(true)
			if err != nil {
				return err
			}
			a := newApp(cfg, log)
			defer a.Close()

			rep, err := probeFile(cmd.Context(), a, args[0], logs, skipFrames)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == formatText {
				r := render.New(out)
				text := r.Metadata(rep.Metadata)
				if rep.GOP != nil {
					text += "\n" + r.GOP(*rep.GOP)
				}
				if rep.Quality != nil {
					text += "\n" + r.Quality(*rep.Quality)
				}
				_, err := io.WriteString(out, text)
				return err
			}
			return writeJSON(out, rep)
		},
	}

	cmd.Flags().StringVar(&logs.psnr, "psnr-log", "", "ffmpeg psnr filter stats file")
	cmd.Flags().StringVar(&logs.ssim, "ssim-log", "", "ffmpeg ssim filter stats file")
	cmd.Flags().StringVar(&logs.vmaf, "vmaf-log", "", "libvmaf JSON log file")
	cmd.Flags().BoolVar(&skipFrames, "skip-frames", false, "Skip frame listing and GOP analysis")
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "Output format: json or text")
	return cmd
}

func probeFile(ctx context.Context, a *app, path string, logs metricLogs, skipFrames bool) (probeReport, error) {
	rep := probeReport{File: path}

	raw, err := a.probe.Streams(ctx, path)
	if err != nil {
		return rep, err
	}
	if rep.Metadata, err = a.engine.AnalyzeMetadata(ctx, engine.MetadataRequest{Metadata: raw}); err != nil {
		return rep, err
	}

	if !skipFrames {
		frames, err := a.probe.Frames(ctx, path)
		if err != nil {
			return rep, err
		}
		if frames == nil {
			frames = []types.FrameRecord{}
		}
		stats, err := a.engine.AnalyzeGOP(ctx, engine.GOPRequest{Frames: frames})
		if err != nil {
			return rep, err
		}
		rep.GOP = &stats
	}

	samples, err := readMetricLogs(a.probe, logs)
	if err != nil {
		return rep, err
	}
	if len(samples) > 0 {
		q, err := a.engine.CompareQuality(ctx, engine.QualityRequest{Distorted: samples})
		if err != nil {
			return rep, err
		}
		rep.Quality = &q
	}
	return rep, nil
}

func readMetricLogs(runner *probe.Runner, logs metricLogs) ([]quality.Sample, error) {
	parsers := []struct {
		path  string
		parse func(io.Reader, probe.SkipFunc) ([]quality.Sample, error)
	}{
		{logs.psnr, probe.ParsePSNRLog},
		{logs.ssim, probe.ParseSSIMLog},
		{logs.vmaf, probe.ParseVMAFLog},
	}

	var samples []quality.Sample
	for _, p := range parsers {
		if p.path == "" {
			continue
		}
		parsed, err := parseLog(p.path, runner.SkipLogger(logger.CategoryMetricParse, p.path), p.parse)
		if err != nil {
			return nil, err
		}
		samples = append(samples, parsed...)
	}
	return samples, nil
}

func parseLog(path string, skip probe.SkipFunc, parse func(io.Reader, probe.SkipFunc) ([]quality.Sample, error)) ([]quality.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metric log: %w", err)
	}
	defer f.Close()

	samples, err := parse(f, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
