package transform

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/alejandrofontan/DROID-SLAM/rimage"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// Vector returns the intrinsics in (fx, fy, cx, cy) order.
func (params PinholeCameraIntrinsics) Vector() [4]float64 {
	return [4]float64{params.Fx, params.Fy, params.Ppx, params.Ppy}
}

// Scaled returns the intrinsics of an image resized to width x height. fx and ppx are scaled by
// sx, fy and ppy by sy.
func (params PinholeCameraIntrinsics) Scaled(width, height int, sx, sy float64) PinholeCameraIntrinsics {
	return PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     params.Fx * sx,
		Fy:     params.Fy * sy,
		Ppx:    params.Ppx * sx,
		Ppy:    params.Ppy * sy,
	}
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// CheckValid checks that the intrinsics and the distortion model are usable.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion == nil {
		return InvalidDistortionError("no distortion model to undistort with")
	}
	return params.Distortion.CheckValid()
}

// DistortionMap returns a function taking undistorted pixels (u,v) to the distorted pixels
// (x,y) they are sampled from. Pixels are normalized with the inverse camera matrix and
// projected back with the camera matrix, so the undistorted image keeps the same intrinsics.
func (params *PinholeCameraModel) DistortionMap() (func(u, v float64) (float64, float64), error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	k := params.GetCameraMatrix()
	var kInv mat.Dense
	if err := kInv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	return func(u, v float64) (float64, float64) {
		x := kInv.At(0, 0)*u + kInv.At(0, 1)*v + kInv.At(0, 2)
		y := kInv.At(1, 0)*u + kInv.At(1, 1)*v + kInv.At(1, 2)
		x, y = params.Distortion.Transform(x, y)
		return k.At(0, 0)*x + k.At(0, 1)*y + k.At(0, 2), k.At(1, 0)*x + k.At(1, 1)*y + k.At(1, 2)
	}, nil
}

// UndistortImage takes an input image and creates a new image the same size with the same camera parameters
// as the original image, but undistorted according to the distortion model in PinholeCameraModel. A bilinear
// interpolation is used between image pixels; pixels that map outside the source are black.
func (params *PinholeCameraModel) UndistortImage(img *image.NRGBA) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	distortionMap, err := params.DistortionMap()
	if err != nil {
		return nil, err
	}
	if params.Width != img.Bounds().Dx() || params.Height != img.Bounds().Dy() {
		return nil, errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			img.Bounds().Dx(), img.Bounds().Dy(), params.Width, params.Height)
	}
	undistortedImg := image.NewNRGBA(image.Rect(0, 0, params.Width, params.Height))
	for v := 0; v < params.Height; v++ {
		for u := 0; u < params.Width; u++ {
			x, y := distortionMap(float64(u), float64(v))
			c, _ := rimage.BilinearColor(img, x, y)
			undistortedImg.SetNRGBA(u, v, c)
		}
	}
	return undistortedImg, nil
}
