// Package rimage holds the image reading, resampling and layout conversions used to prepare
// frames for the tracking engine.
package rimage

import (
	"image"
	"image/color"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	_ "github.com/lmittmann/ppm" // register ppm
	_ "github.com/xfmoulet/qoi"   // register qoi
	// webp is not registered by imaging; bmp, tiff, png, jpeg and gif are.
	_ "golang.org/x/image/webp"
)

// ReadImageFromFile decodes the image at path into an NRGBA image. EXIF orientation is not
// applied.
func ReadImageFromFile(path string) (*image.NRGBA, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", path)
	}
	return imaging.Clone(img), nil
}

// WriteImageToFile encodes img to path. The format follows the file extension.
func WriteImageToFile(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}

// Resize scales img to exactly width x height using bilinear interpolation.
func Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid resize target (%d, %d)", width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img), nil
	}
	return imaging.Clone(resize.Resize(uint(width), uint(height), img, resize.Bilinear)), nil
}

// CropTopLeft keeps the width x height region anchored at the top-left corner of img.
func CropTopLeft(img image.Image, width, height int) (*image.NRGBA, error) {
	b := img.Bounds()
	if width <= 0 || height <= 0 || width > b.Dx() || height > b.Dy() {
		return nil, errors.Errorf("crop (%d, %d) does not fit image (%d, %d)", width, height, b.Dx(), b.Dy())
	}
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Min.Y+height)), nil
}

// BilinearColor samples img at the continuous pixel coordinate (x, y). Neighbors outside the
// image contribute black, matching a constant zero border. The bool is false when every
// neighbor is outside the image.
func BilinearColor(img *image.NRGBA, x, y float64) (color.NRGBA, bool) {
	b := img.Bounds()
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var r, g, bl float64
	inside := false
	weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}
	points := [4]image.Point{{x0, y0}, {x0 + 1, y0}, {x0, y0 + 1}, {x0 + 1, y0 + 1}}
	for i, p := range points {
		if !p.In(b) {
			continue
		}
		inside = true
		c := img.NRGBAAt(p.X, p.Y)
		r += weights[i] * float64(c.R)
		g += weights[i] * float64(c.G)
		bl += weights[i] * float64(c.B)
	}
	if !inside {
		return color.NRGBA{A: 255}, false
	}
	return color.NRGBA{R: clampUint8(r), G: clampUint8(g), B: clampUint8(bl), A: 255}, true
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
