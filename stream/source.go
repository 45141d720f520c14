// Package stream produces processed, calibrated frames from an image sequence on disk.
package stream

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/alejandrofontan/DROID-SLAM/calibration"
	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage"
)

// SourceConfig locates a sequence on disk.
type SourceConfig struct {
	// SequencePath is the directory image paths in the index are relative to.
	SequencePath    string
	IndexPath       string
	CalibrationPath string
	Stride          int
}

// Source opens traversals over a sequence. It holds no traversal state; every call to Open
// rereads the calibration and index files.
type Source struct {
	cfg    SourceConfig
	logger logging.Logger
}

// NewSource returns a Source for cfg.
func NewSource(cfg SourceConfig, logger logging.Logger) *Source {
	return &Source{cfg: cfg, logger: logger}
}

// Open starts a new traversal. Calibration and index errors are returned here, before any
// frame is read.
func (s *Source) Open(ctx context.Context) (*Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := calibration.Load(s.cfg.CalibrationPath)
	if err != nil {
		return nil, err
	}
	entries, err := ReadIndexFile(s.cfg.IndexPath, s.cfg.Stride)
	if err != nil {
		return nil, err
	}
	timestamps := make([]string, 0, len(entries))
	for _, e := range entries {
		timestamps = append(timestamps, e.Timestamp)
	}
	s.logger.Debugw("opened sequence", "frames", len(entries), "distortion", params.HasDistortion())
	return &Iterator{
		sequencePath: s.cfg.SequencePath,
		preprocessor: NewPreprocessor(params),
		entries:      entries,
		timestamps:   timestamps,
		next:         0,
	}, nil
}

// Iterator is one traversal of a sequence. Frames are loaded lazily by Next.
type Iterator struct {
	sequencePath string
	preprocessor *Preprocessor
	entries      []Entry
	timestamps   []string

	next    int
	current *FrameRecord
	err     error
}

// Next loads the next frame. It returns false when the traversal is exhausted or failed;
// check Err to tell the two apart.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil || it.next >= len(it.entries) {
		it.current = nil
		return false
	}
	if err := ctx.Err(); err != nil {
		it.err = err
		it.current = nil
		return false
	}
	entry := it.entries[it.next]
	frame, err := it.load(it.next, entry)
	if err != nil {
		it.err = err
		it.current = nil
		return false
	}
	it.current = frame
	it.next++
	return true
}

func (it *Iterator) load(index int, entry Entry) (*FrameRecord, error) {
	path := filepath.Join(it.sequencePath, entry.Path)
	img, err := rimage.ReadImageFromFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", index)
	}
	processed, intrinsics, err := it.preprocessor.Process(img)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot preprocess frame %d (%s)", index, path)
	}
	return &FrameRecord{
		Index:      index,
		Timestamp:  entry.Timestamp,
		Path:       path,
		Image:      processed,
		Intrinsics: intrinsics,
	}, nil
}

// Frame returns the frame loaded by the last successful Next.
func (it *Iterator) Frame() *FrameRecord {
	return it.current
}

// Err returns the error that stopped the traversal, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Len returns the number of frames in the traversal.
func (it *Iterator) Len() int {
	return len(it.entries)
}

// Timestamps returns the timestamp table of this traversal, index-aligned with its frames.
func (it *Iterator) Timestamps() []string {
	out := make([]string, len(it.timestamps))
	copy(out, it.timestamps)
	return out
}
