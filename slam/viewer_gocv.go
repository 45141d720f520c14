//go:build gocv

package slam

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/stream"
)

type windowViewer struct {
	window *gocv.Window
}

func newWindowViewer(expFolder string, logger logging.Logger) (Viewer, error) {
	logger.Debug("opening frame window")
	return &windowViewer{window: gocv.NewWindow("image")}, nil
}

func (v *windowViewer) Show(frame *stream.FrameRecord) error {
	mat, err := gocv.ImageToMatRGB(frame.Image)
	if err != nil {
		return errors.Wrap(err, "cannot convert frame")
	}
	//nolint:errcheck
	defer mat.Close()
	v.window.IMShow(mat)
	v.window.WaitKey(1)
	return nil
}

func (v *windowViewer) Close() error {
	return v.window.Close()
}
