package stream

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/alejandrofontan/DROID-SLAM/calibration"
	"github.com/alejandrofontan/DROID-SLAM/rimage"
	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
)

const (
	// DefaultTargetPixels is the pixel budget frames are scaled towards (384x512).
	DefaultTargetPixels = 384 * 512
	// DefaultMultiple is the alignment processed frame dimensions are cropped to.
	DefaultMultiple = 8
)

// Preprocessor turns raw camera frames into network-sized frames with matching intrinsics.
type Preprocessor struct {
	Calibration  *calibration.Parameters
	TargetPixels int
	Multiple     int
}

// NewPreprocessor returns a Preprocessor with the default pixel budget and alignment.
func NewPreprocessor(params *calibration.Parameters) *Preprocessor {
	return &Preprocessor{
		Calibration:  params,
		TargetPixels: DefaultTargetPixels,
		Multiple:     DefaultMultiple,
	}
}

// TargetSize returns the resized (unaligned) size of a width x height frame.
func (p *Preprocessor) TargetSize(width, height int) (int, int) {
	scale := math.Sqrt(float64(p.TargetPixels) / float64(height*width))
	return int(float64(width) * scale), int(float64(height) * scale)
}

// Process undistorts img if the calibration has distortion, scales it to the pixel budget and
// crops it top-left to a multiple of the alignment. The returned intrinsics describe the
// processed image.
func (p *Preprocessor) Process(img *image.NRGBA) (*image.NRGBA, transform.PinholeCameraIntrinsics, error) {
	if p.Calibration == nil {
		return nil, transform.PinholeCameraIntrinsics{}, transform.NewNoIntrinsicsError("no calibration")
	}
	w0, h0 := img.Bounds().Dx(), img.Bounds().Dy()
	if w0 == 0 || h0 == 0 {
		return nil, transform.PinholeCameraIntrinsics{}, errors.New("empty image")
	}

	original := p.Calibration.Intrinsics(w0, h0)
	if err := original.CheckValid(); err != nil {
		return nil, transform.PinholeCameraIntrinsics{}, err
	}

	if p.Calibration.HasDistortion() {
		model, err := p.Calibration.Model(w0, h0)
		if err != nil {
			return nil, transform.PinholeCameraIntrinsics{}, err
		}
		undistorted, err := model.UndistortImage(img)
		if err != nil {
			return nil, transform.PinholeCameraIntrinsics{}, err
		}
		img = undistorted
	}

	w1, h1 := p.TargetSize(w0, h0)
	resized, err := rimage.Resize(img, w1, h1)
	if err != nil {
		return nil, transform.PinholeCameraIntrinsics{}, err
	}

	multiple := p.Multiple
	if multiple < 1 {
		multiple = 1
	}
	cropW, cropH := w1-w1%multiple, h1-h1%multiple
	cropped, err := rimage.CropTopLeft(resized, cropW, cropH)
	if err != nil {
		return nil, transform.PinholeCameraIntrinsics{}, err
	}

	intrinsics := original.Scaled(
		cropW, cropH, float64(w1)/float64(w0), float64(h1)/float64(h0))
	return cropped, intrinsics, nil
}
