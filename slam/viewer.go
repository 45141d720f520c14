package slam

import (
	"path/filepath"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage"
	"github.com/alejandrofontan/DROID-SLAM/stream"
)

// Viewer shows frames as they are submitted. It has no effect on tracking.
type Viewer interface {
	Show(frame *stream.FrameRecord) error
	Close() error
}

// NewViewer returns a no-op viewer when disabled and otherwise the build's frame window.
func NewViewer(disabled bool, expFolder string, logger logging.Logger) (Viewer, error) {
	if disabled {
		return noopViewer{}, nil
	}
	return newWindowViewer(expFolder, logger)
}

type noopViewer struct{}

func (noopViewer) Show(*stream.FrameRecord) error { return nil }

func (noopViewer) Close() error { return nil }

// previewViewer overwrites a single image file with the latest frame.
type previewViewer struct {
	path string
}

// NewPreviewViewer returns a viewer that writes each frame to path.
func NewPreviewViewer(path string) Viewer {
	return &previewViewer{path: path}
}

func (v *previewViewer) Show(frame *stream.FrameRecord) error {
	return rimage.WriteImageToFile(v.path, frame.Image)
}

func (v *previewViewer) Close() error { return nil }

func previewPath(expFolder string) string {
	return filepath.Join(expFolder, "preview.jpg")
}
