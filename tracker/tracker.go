// Package tracker defines the contract between the frame driver and a visual-SLAM engine,
// along with the registry engines are constructed through.
package tracker

import (
	"context"

	"gorgonia.org/tensor"

	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
	"github.com/alejandrofontan/DROID-SLAM/stream"
	"github.com/alejandrofontan/DROID-SLAM/trajectory"
)

// Engine is a visual-SLAM tracking engine. The engine owns keyframe selection, windowed
// optimization and the pose graph; callers only submit frames and collect poses.
type Engine interface {
	// Track submits one frame. image is a 1x3xHxW uint8 tensor in B,G,R order.
	Track(ctx context.Context, index int, image *tensor.Dense, intrinsics transform.PinholeCameraIntrinsics) error

	// Terminate finishes optimization and returns the estimated trajectory, ordered, with
	// each pose tagged by the index of the frame it belongs to. frames is a fresh traversal
	// of the sequence that the engine may consume.
	Terminate(ctx context.Context, frames Frames) ([]EstimatedPose, error)

	Close(ctx context.Context) error
}

// Frames is a traversal of processed frames. *stream.Iterator implements it.
type Frames interface {
	Next(ctx context.Context) bool
	Frame() *stream.FrameRecord
	Err() error
}

var _ Frames = (*stream.Iterator)(nil)

// EstimatedPose is a pose returned by Terminate.
type EstimatedPose struct {
	Index int
	trajectory.Pose
}

// PoseBuffer is implemented by engines that expose their keyframe pose buffer.
type PoseBuffer interface {
	// BufferedPoses returns the buffered poses with buffer position below upTo.
	BufferedPoses(upTo int) []trajectory.Pose
}
