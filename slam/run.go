// Package slam drives a tracking engine over an image sequence and records the trajectory it
// estimates.
package slam

import (
	"context"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/alejandrofontan/DROID-SLAM/config"
	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/stream"
	"github.com/alejandrofontan/DROID-SLAM/tracker"
	"github.com/alejandrofontan/DROID-SLAM/trajectory"
)

const trajectorySuffix = "_KeyFrameTrajectory"

// Options configure a run.
type Options struct {
	SequencePath    string
	IndexPath       string
	CalibrationPath string

	// ExpFolder receives the trajectory file; ExpIt names it.
	ExpFolder string
	ExpIt     string

	Settings config.Settings

	// Plot also saves a top-down plot of the trajectory next to it.
	Plot bool
	// ShowProgress draws a progress bar while frames are tracked.
	ShowProgress bool
	// Viewer replaces the viewer selected by Settings.DisableVis.
	Viewer Viewer
	// Clock times engine calls. Defaults to the wall clock.
	Clock clock.Clock
}

// Result summarizes a finished run.
type Result struct {
	TrajectoryPath string
	PlotPath       string
	// Submitted and Skipped count frames of the first traversal.
	Submitted int
	Skipped   int
	Records   []trajectory.Record
	// BufferedPoses is the number of keyframe poses the engine reported, or -1 when the engine
	// does not expose its buffer.
	BufferedPoses int
	TrackLatency  LatencySummary
}

// String prints the run as a two column table.
func (r *Result) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"trajectory", r.TrajectoryPath})
	if r.PlotPath != "" {
		t.AppendRow(table.Row{"plot", r.PlotPath})
	}
	t.AppendRow(table.Row{"submitted", r.Submitted})
	t.AppendRow(table.Row{"skipped", r.Skipped})
	t.AppendRow(table.Row{"poses", len(r.Records)})
	if r.BufferedPoses >= 0 {
		t.AppendRow(table.Row{"buffered poses", r.BufferedPoses})
	}
	t.AppendRow(table.Row{"track mean", r.TrackLatency.Mean})
	t.AppendRow(table.Row{"track median", r.TrackLatency.Median})
	t.AppendRow(table.Row{"track p95", r.TrackLatency.P95})
	return t.Render()
}

// ZeroPad left-pads s with zeros to width characters. A leading sign stays in front.
func ZeroPad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	padding := strings.Repeat("0", width-n)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return s[:1] + padding + s[1:]
	}
	return padding + s
}

// TrajectoryPath returns where the trajectory of experiment iteration expIt is written.
func TrajectoryPath(expFolder, expIt string) string {
	return filepath.Join(expFolder, ZeroPad(expIt, 5)+trajectorySuffix+".txt")
}

// PlotPath returns where the trajectory plot of experiment iteration expIt is written.
func PlotPath(expFolder, expIt string) string {
	return filepath.Join(expFolder, ZeroPad(expIt, 5)+trajectorySuffix+".png")
}

// AlignTimestamps stamps every pose with the timestamp of its frame.
func AlignTimestamps(poses []tracker.EstimatedPose, timestamps []string) ([]trajectory.Record, error) {
	records := make([]trajectory.Record, 0, len(poses))
	for i, pose := range poses {
		if pose.Index < 0 || pose.Index >= len(timestamps) {
			return nil, errors.Errorf("pose %d refers to frame %d, but the sequence has %d frames", i, pose.Index, len(timestamps))
		}
		records = append(records, trajectory.Record{Timestamp: timestamps[pose.Index], Pose: pose.Pose})
	}
	return records, nil
}

// Run tracks every frame from Settings.T0 on, finalizes the engine over a fresh traversal and
// writes the trajectory file.
func Run(ctx context.Context, opts Options, logger logging.Logger) (result *Result, err error) {
	settings := opts.Settings
	if err := settings.Validate("settings"); err != nil {
		return nil, err
	}
	logger = logger.WithFields("exp_it", ZeroPad(opts.ExpIt, 5))

	source := stream.NewSource(stream.SourceConfig{
		SequencePath:    opts.SequencePath,
		IndexPath:       opts.IndexPath,
		CalibrationPath: opts.CalibrationPath,
		Stride:          settings.Stride,
	}, logger.Sublogger("stream"))

	frames, err := source.Open(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infow("tracking sequence", "frames", frames.Len(), "t0", settings.T0, "engine", settings.Engine)

	viewer := opts.Viewer
	if viewer == nil {
		if viewer, err = NewViewer(settings.DisableVis, opts.ExpFolder, logger); err != nil {
			return nil, err
		}
	}
	defer func() {
		err = multierr.Combine(err, viewer.Close())
	}()

	var engine tracker.Engine
	defer func() {
		if engine != nil {
			err = multierr.Combine(err, engine.Close(context.Background()))
		}
	}()

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	result = &Result{BufferedPoses: -1}
	bar := newProgress(opts.ShowProgress, frames.Len(), logger)
	var latencies []time.Duration
	lastIndex := -1
	for frames.Next(ctx) {
		frame := frames.Frame()
		lastIndex = frame.Index
		bar.Increment()
		if frame.Index < settings.T0 {
			result.Skipped++
			continue
		}

		if err := viewer.Show(frame); err != nil {
			logger.Warnw("cannot show frame", "index", frame.Index, "error", err)
		}

		if engine == nil {
			engineConfig := settings.Config
			engineConfig.Stereo = false
			engineConfig.ImageSize = [2]int{frame.Height(), frame.Width()}
			if engine, err = tracker.New(ctx, settings.Engine, engineConfig, logger); err != nil {
				bar.Stop()
				return nil, err
			}
			logger.Debugw("engine created", "height", frame.Height(), "width", frame.Width())
		}

		start := clk.Now()
		if err := engine.Track(ctx, frame.Index, frame.Tensor(), frame.Intrinsics); err != nil {
			bar.Stop()
			return nil, errors.Wrapf(err, "engine failed on frame %d", frame.Index)
		}
		latencies = append(latencies, clk.Since(start))
		result.Submitted++
	}
	bar.Stop()
	if err := frames.Err(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, errors.Errorf("no frames submitted: t0 is %d but the sequence has %d frames", settings.T0, frames.Len())
	}

	final, err := source.Open(ctx)
	if err != nil {
		return nil, err
	}
	poses, err := engine.Terminate(ctx, final)
	if err != nil {
		return nil, errors.Wrap(err, "engine failed to terminate")
	}
	records, err := AlignTimestamps(poses, final.Timestamps())
	if err != nil {
		return nil, err
	}
	result.Records = records

	if buffer, ok := engine.(tracker.PoseBuffer); ok {
		buffered := buffer.BufferedPoses(lastIndex)
		result.BufferedPoses = len(buffered)
		logger.Debugw("keyframe buffer", "poses", len(buffered), "up_to", lastIndex)
	}

	result.TrajectoryPath = TrajectoryPath(opts.ExpFolder, opts.ExpIt)
	if err := trajectory.WriteFile(result.TrajectoryPath, records); err != nil {
		return nil, err
	}
	logger.Infow("trajectory written", "path", result.TrajectoryPath, "poses", len(records))

	if opts.Plot {
		result.PlotPath = PlotPath(opts.ExpFolder, opts.ExpIt)
		if err := trajectory.PlotTopDown(result.PlotPath, "exp "+opts.ExpIt, records); err != nil {
			return nil, err
		}
	}

	result.TrackLatency = SummarizeLatencies(latencies)
	logger.Infow("track latency",
		"frames", result.TrackLatency.Count,
		"mean", result.TrackLatency.Mean,
		"median", result.TrackLatency.Median,
		"p95", result.TrackLatency.P95)
	return result, nil
}
