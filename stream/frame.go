package stream

import (
	"image"

	"gorgonia.org/tensor"

	"github.com/alejandrofontan/DROID-SLAM/rimage"
	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
)

// FrameRecord is one processed frame of a sequence.
type FrameRecord struct {
	Index      int
	Timestamp  string
	Path       string
	Image      *image.NRGBA
	Intrinsics transform.PinholeCameraIntrinsics
}

// Tensor returns the frame as a 1x3xHxW uint8 tensor in B,G,R channel order.
func (f *FrameRecord) Tensor() *tensor.Dense {
	return rimage.ToCHWTensor(f.Image, rimage.BGR)
}

// Width of the processed frame.
func (f *FrameRecord) Width() int {
	return f.Image.Bounds().Dx()
}

// Height of the processed frame.
func (f *FrameRecord) Height() int {
	return f.Image.Bounds().Dy()
}
