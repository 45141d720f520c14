// Package process hosts a tracking engine in a child process. Frames, settings and results are
// exchanged through a per-run data directory.
package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils/pexec"
	"gorgonia.org/tensor"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage"
	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
	"github.com/alejandrofontan/DROID-SLAM/tracker"
	"github.com/alejandrofontan/DROID-SLAM/trajectory"
)

// Name is the registered name of the process engine.
const Name = "process"

func init() {
	tracker.Register(Name, tracker.Registration{
		Constructor: func(ctx context.Context, config tracker.Config, logger logging.Logger) (tracker.Engine, error) {
			return NewEngine(ctx, config, logger)
		},
		Description: "engine running as an external binary (--engine_binary)",
	})
}

var (
	_ = tracker.Engine(&Engine{})
	_ = tracker.PoseBuffer(&Engine{})
)

// Engine drives an engine process through its exchange directory.
type Engine struct {
	config  tracker.Config
	logger  logging.Logger
	runID   string
	root    string
	process pexec.ProcessManager

	frames     *os.File
	written    map[int]bool
	terminated bool
	keyframes  []trajectory.Pose

	exitOnce sync.Once
	exited   chan struct{}
	exitCode int
}

// NewEngine creates the exchange directory, writes the engine settings and starts the engine
// binary.
func NewEngine(ctx context.Context, config tracker.Config, logger logging.Logger) (*Engine, error) {
	if config.Host.Binary == "" {
		return nil, errors.New("process engine needs a binary to run")
	}
	if config.ImageSize[0] <= 0 || config.ImageSize[1] <= 0 {
		return nil, errors.Errorf("invalid image size %v", config.ImageSize)
	}

	runID := uuid.NewString()
	root, err := createExchangeDirectory(config.Host.DataDirectory, runID)
	if err != nil {
		return nil, err
	}
	settingsPath := filepath.Join(root, configDir, settingsFile)
	if err := writeSettingsYAML(settingsPath, newEngineSettings(runID, config)); err != nil {
		return nil, errors.Wrap(err, "cannot write engine settings")
	}
	//nolint:gosec
	frames, err := os.OpenFile(filepath.Join(root, dataDir, framesFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, exchangeFilePerm)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create frame list")
	}

	engine := &Engine{
		config:  config,
		logger:  logger,
		runID:   runID,
		root:    root,
		process: pexec.NewProcessManager(logger),
		frames:  frames,
		written: map[int]bool{},
		exited:  make(chan struct{}),
	}
	if err := engine.startProcess(ctx, settingsPath); err != nil {
		return nil, multierr.Combine(err, frames.Close())
	}
	logger.Infow("engine process started", "run_id", runID, "data_dir", root)
	return engine, nil
}

// ProcessConfig returns the process config for the engine process.
func (e *Engine) ProcessConfig(settingsPath string) pexec.ProcessConfig {
	args := append([]string{}, e.config.Host.Args...)
	args = append(args, "-config_file="+settingsPath)
	args = append(args, "-data_dir="+e.root)

	return pexec.ProcessConfig{
		ID:               "droidslam_" + e.runID,
		Name:             e.config.Host.Binary,
		Args:             args,
		Log:              true,
		OneShot:          false,
		OnUnexpectedExit: e.onUnexpectedExit,
	}
}

// onUnexpectedExit records the exit and stops pexec from restarting the engine. A restarted
// engine would have lost every frame it was given.
func (e *Engine) onUnexpectedExit(ctx context.Context, exitCode int) bool {
	e.exitOnce.Do(func() {
		e.exitCode = exitCode
		close(e.exited)
	})
	e.logger.Infow("engine process exited", "exit_code", exitCode)
	return false
}

// exitErr returns an error once the engine process has exited.
func (e *Engine) exitErr() error {
	select {
	case <-e.exited:
		return errors.Errorf("engine process exited with code %d", e.exitCode)
	default:
		return nil
	}
}

func (e *Engine) startProcess(ctx context.Context, settingsPath string) error {
	if _, err := e.process.AddProcessFromConfig(ctx, e.ProcessConfig(settingsPath)); err != nil {
		return errors.Wrap(err, "problem adding engine process")
	}
	e.logger.Debug("starting engine process")
	if err := e.process.Start(ctx); err != nil {
		return errors.Wrap(err, "problem starting engine process")
	}
	return nil
}

// DataDirectory returns the run's exchange directory.
func (e *Engine) DataDirectory() string {
	return e.root
}

func (e *Engine) writeFrame(index int, image *tensor.Dense) error {
	if e.written[index] {
		return nil
	}
	img, err := rimage.FromCHWTensor(image, rimage.BGR)
	if err != nil {
		return errors.Wrapf(err, "frame %d", index)
	}
	if err := rimage.WriteImageToFile(frameImagePath(e.root, index), img); err != nil {
		return err
	}
	e.written[index] = true
	return nil
}

// Track writes the frame image and then appends it to the frame list the engine follows.
func (e *Engine) Track(ctx context.Context, index int, image *tensor.Dense, intrinsics transform.PinholeCameraIntrinsics) error {
	if e.terminated {
		return errors.New("engine already terminated")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.exitErr(); err != nil {
		return errors.Wrapf(err, "frame %d", index)
	}
	shape := image.Shape()
	if len(shape) != 4 || shape[2] != e.config.ImageSize[0] || shape[3] != e.config.ImageSize[1] {
		return errors.Errorf("frame %d: shape %v does not match engine size %v", index, shape, e.config.ImageSize)
	}
	if err := e.writeFrame(index, image); err != nil {
		return err
	}
	line := fmt.Sprintf("%d %s %s %s %s\n", index,
		trajectory.FormatFloat(intrinsics.Fx), trajectory.FormatFloat(intrinsics.Fy),
		trajectory.FormatFloat(intrinsics.Ppx), trajectory.FormatFloat(intrinsics.Ppy))
	if _, err := e.frames.WriteString(line); err != nil {
		return errors.Wrap(err, "cannot append to frame list")
	}
	return nil
}

// Terminate writes every frame of the traversal the engine has not seen yet together with the
// timestamp table, signals completion and waits for the engine to publish its trajectory.
func (e *Engine) Terminate(ctx context.Context, frames tracker.Frames) ([]tracker.EstimatedPose, error) {
	if e.terminated {
		return nil, errors.New("engine already terminated")
	}
	e.terminated = true

	//nolint:gosec
	table, err := os.Create(filepath.Join(e.root, dataDir, timestampsFile))
	if err != nil {
		return nil, errors.Wrap(err, "cannot create timestamp table")
	}
	count := 0
	for frames.Next(ctx) {
		frame := frames.Frame()
		if err := e.writeFrame(frame.Index, frame.Tensor()); err != nil {
			return nil, multierr.Combine(err, table.Close())
		}
		in := frame.Intrinsics
		if _, err := fmt.Fprintf(table, "%d %s %s %s %s %s\n", frame.Index, frame.Timestamp,
			trajectory.FormatFloat(in.Fx), trajectory.FormatFloat(in.Fy),
			trajectory.FormatFloat(in.Ppx), trajectory.FormatFloat(in.Ppy)); err != nil {
			return nil, multierr.Combine(err, table.Close())
		}
		count++
	}
	if err := multierr.Combine(frames.Err(), table.Close(), e.frames.Sync()); err != nil {
		return nil, errors.Wrap(err, "cannot hand frames to engine")
	}
	if err := os.WriteFile(filepath.Join(e.root, dataDir, doneFile), nil, exchangeFilePerm); err != nil {
		return nil, errors.Wrap(err, "cannot signal engine")
	}

	e.logger.Infow("waiting for engine trajectory", "frames", count)
	resultPath := filepath.Join(e.root, mapDir, trajectoryFile)
	if err := waitForFile(ctx, resultPath, e.exited); err != nil {
		if errors.Is(err, errProcessExited) {
			return nil, e.exitErr()
		}
		return nil, err
	}
	poses, err := readTrajectory(resultPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read engine trajectory")
	}

	keyframes, err := readKeyframePoses(filepath.Join(e.root, mapDir, keyframePosesFile))
	switch {
	case err == nil:
		e.keyframes = keyframes
	case errors.Is(err, os.ErrNotExist):
	default:
		e.logger.Warnw("cannot read keyframe poses", "error", err)
	}
	return poses, nil
}

// BufferedPoses returns the keyframe poses published by the engine at buffer positions below
// upTo. It is empty until Terminate returns.
func (e *Engine) BufferedPoses(upTo int) []trajectory.Pose {
	upTo = min(max(upTo, 0), len(e.keyframes))
	out := make([]trajectory.Pose, upTo)
	copy(out, e.keyframes[:upTo])
	return out
}

// Close stops the engine process. The exchange directory is left in place.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	if stopErr := e.process.Stop(); stopErr != nil {
		err = errors.Wrap(stopErr, "problem stopping engine process")
	}
	return multierr.Combine(err, e.frames.Close())
}
