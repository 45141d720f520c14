// Package fake implements a deterministic in-process tracking engine.
package fake

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
	"github.com/alejandrofontan/DROID-SLAM/tracker"
	"github.com/alejandrofontan/DROID-SLAM/trajectory"
)

// Name is the registered name of the fake engine.
const Name = "fake"

// Step is the distance along +z between consecutive frame indices.
const Step = 0.1

func init() {
	tracker.Register(Name, tracker.Registration{
		Constructor: func(ctx context.Context, config tracker.Config, logger logging.Logger) (tracker.Engine, error) {
			return NewEngine(config, logger)
		},
		Description: "in-process engine that moves the camera forward one step per frame",
	})
}

var (
	_ = tracker.Engine(&Engine{})
	_ = tracker.PoseBuffer(&Engine{})
)

// Submission is a frame the engine received through Track.
type Submission struct {
	Index      int
	Height     int
	Width      int
	Intrinsics transform.PinholeCameraIntrinsics
}

// Engine records submissions and treats every one as a keyframe.
type Engine struct {
	config      tracker.Config
	logger      logging.Logger
	submissions []Submission
	terminated  bool
	closed      bool
}

// NewEngine returns a fake engine for frames of config.ImageSize.
func NewEngine(config tracker.Config, logger logging.Logger) (*Engine, error) {
	if config.ImageSize[0] <= 0 || config.ImageSize[1] <= 0 {
		return nil, errors.Errorf("invalid image size %v", config.ImageSize)
	}
	logger.Debugw("fake engine created", "image_size", config.ImageSize, "buffer", config.Buffer)
	return &Engine{config: config, logger: logger}, nil
}

func poseAt(index int) trajectory.Pose {
	pose := trajectory.NewIdentityPose()
	pose.Translation.Z = Step * float64(index)
	return pose
}

// Track records the frame.
func (e *Engine) Track(ctx context.Context, index int, image *tensor.Dense, intrinsics transform.PinholeCameraIntrinsics) error {
	if e.closed {
		return errors.New("engine is closed")
	}
	if e.terminated {
		return errors.New("engine already terminated")
	}
	shape := image.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return errors.Errorf("frame %d: expected a 1x3xHxW tensor, got %v", index, shape)
	}
	if shape[2] != e.config.ImageSize[0] || shape[3] != e.config.ImageSize[1] {
		return errors.Errorf("frame %d: size %dx%d does not match engine size %dx%d",
			index, shape[2], shape[3], e.config.ImageSize[0], e.config.ImageSize[1])
	}
	if n := len(e.submissions); n > 0 && index <= e.submissions[n-1].Index {
		return errors.Errorf("frame %d submitted after frame %d", index, e.submissions[n-1].Index)
	}
	e.submissions = append(e.submissions, Submission{
		Index:      index,
		Height:     shape[2],
		Width:      shape[3],
		Intrinsics: intrinsics,
	})
	return nil
}

// Terminate returns one pose per frame of frames.
func (e *Engine) Terminate(ctx context.Context, frames tracker.Frames) ([]tracker.EstimatedPose, error) {
	if e.terminated {
		return nil, errors.New("engine already terminated")
	}
	e.terminated = true

	var poses []tracker.EstimatedPose
	for frames.Next(ctx) {
		frame := frames.Frame()
		poses = append(poses, tracker.EstimatedPose{Index: frame.Index, Pose: poseAt(frame.Index)})
	}
	if err := frames.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot traverse frames for termination")
	}
	e.logger.Debugw("fake engine terminated", "keyframes", len(e.submissions), "poses", len(poses))
	return poses, nil
}

// BufferedPoses returns the keyframe poses at buffer positions below upTo. The buffer holds the
// first config.Buffer submissions; later frames are tracked but not buffered.
func (e *Engine) BufferedPoses(upTo int) []trajectory.Pose {
	upTo = min(max(upTo, 0), len(e.submissions), e.config.Buffer)
	poses := make([]trajectory.Pose, 0, upTo)
	for _, sub := range e.submissions[:upTo] {
		poses = append(poses, poseAt(sub.Index))
	}
	return poses
}

// Submissions returns a copy of every frame received through Track.
func (e *Engine) Submissions() []Submission {
	out := make([]Submission, len(e.submissions))
	copy(out, e.submissions)
	return out
}

// Close marks the engine closed.
func (e *Engine) Close(ctx context.Context) error {
	e.closed = true
	return nil
}
