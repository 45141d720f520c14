//go:build !gocv

package slam

import "github.com/alejandrofontan/DROID-SLAM/logging"

func newWindowViewer(expFolder string, logger logging.Logger) (Viewer, error) {
	path := previewPath(expFolder)
	logger.Infow("frames are previewed in a file; build with -tags gocv for a window", "path", path)
	return NewPreviewViewer(path), nil
}
