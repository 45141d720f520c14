package rimage

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ChannelOrder selects how color channels are laid out in a tensor.
type ChannelOrder int

const (
	// BGR is the order produced by OpenCV style readers and expected by networks trained on them.
	BGR ChannelOrder = iota
	// RGB is the natural order of Go images.
	RGB
)

// ToCHWTensor converts img to a 1x3xHxW uint8 tensor (batch, channel, row, column).
func ToCHWTensor(img *image.NRGBA, order ChannelOrder) *tensor.Dense {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	plane := width * height
	backing := make([]uint8, 3*plane)

	first, third := 0, 2
	if order == BGR {
		first, third = 2, 0
	}
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*width]
		for x := 0; x < width; x++ {
			k := y*width + x
			backing[first*plane+k] = row[4*x]
			backing[plane+k] = row[4*x+1]
			backing[third*plane+k] = row[4*x+2]
		}
	}
	return tensor.New(tensor.WithShape(1, 3, height, width), tensor.WithBacking(backing))
}

// FromCHWTensor is the inverse of ToCHWTensor. The batch dimension must be 1.
func FromCHWTensor(t *tensor.Dense, order ChannelOrder) (*image.NRGBA, error) {
	shape := t.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return nil, errors.Errorf("expected a 1x3xHxW tensor, got shape %v", shape)
	}
	backing, ok := t.Data().([]uint8)
	if !ok {
		return nil, errors.Errorf("expected uint8 tensor, got %v", t.Dtype())
	}
	height, width := shape[2], shape[3]
	plane := width * height

	first, third := 0, 2
	if order == BGR {
		first, third = 2, 0
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for k := 0; k < plane; k++ {
		img.Pix[4*k] = backing[first*plane+k]
		img.Pix[4*k+1] = backing[plane+k]
		img.Pix[4*k+2] = backing[third*plane+k]
		img.Pix[4*k+3] = 255
	}
	return img, nil
}
