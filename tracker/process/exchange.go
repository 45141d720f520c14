package process

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/alejandrofontan/DROID-SLAM/tracker"
	"github.com/alejandrofontan/DROID-SLAM/trajectory"
)

// Layout of a run's exchange directory.
const (
	configDir          = "config"
	settingsFile       = "settings.yaml"
	dataDir            = "data"
	rgbDir             = "rgb"
	framesFile         = "frames.txt"
	timestampsFile     = "timestamps.txt"
	doneFile           = "done"
	mapDir             = "map"
	trajectoryFile     = "trajectory.txt"
	keyframePosesFile  = "keyframes.txt"
	frameFileTemplate  = "%06d.png"
	exchangeDirPerm    = 0o750
	exchangeFilePerm   = 0o640
	exchangeDirPattern = "droidslam-%s"
)

func createExchangeDirectory(parent, runID string) (string, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	root := filepath.Join(parent, fmt.Sprintf(exchangeDirPattern, runID))
	for _, dir := range []string{
		filepath.Join(root, configDir),
		filepath.Join(root, dataDir, rgbDir),
		filepath.Join(root, mapDir),
	} {
		if err := os.MkdirAll(dir, exchangeDirPerm); err != nil {
			return "", errors.Wrapf(err, "cannot create exchange directory %q", dir)
		}
	}
	return root, nil
}

func frameImagePath(root string, index int) string {
	return filepath.Join(root, dataDir, rgbDir, fmt.Sprintf(frameFileTemplate, index))
}

var errProcessExited = errors.New("engine process exited")

// waitForFile blocks until path exists, ctx is done or exited is closed. The producer is
// expected to create the file by renaming a complete temporary file into place.
func waitForFile(ctx context.Context, path string, exited <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot watch for engine results")
	}
	//nolint:errcheck
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", filepath.Dir(path))
	}

	// the file may have appeared before the watch was in place
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-exited:
			// a result renamed into place just before exiting still counts
			if _, err := os.Stat(path); err == nil {
				return nil
			}
			return errProcessExited
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("result watcher closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				if _, err := os.Stat(path); err == nil {
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("result watcher closed")
			}
			return errors.Wrap(err, "error watching for engine results")
		}
	}
}

// readTrajectory parses "index tx ty tz qx qy qz qw" lines.
func readTrajectory(path string) ([]tracker.EstimatedPose, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer f.Close()

	var poses []tracker.EstimatedPose
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 8 {
			return nil, errors.Errorf("%s line %d: expected 8 fields, got %d", path, lineNum, len(fields))
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d: bad frame index", path, lineNum)
		}
		pose, err := trajectory.ParseFields(fields[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", path, lineNum)
		}
		poses = append(poses, tracker.EstimatedPose{Index: index, Pose: pose})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return poses, nil
}

// readKeyframePoses parses "tx ty tz qx qy qz qw" lines, one per buffer slot.
func readKeyframePoses(path string) ([]trajectory.Pose, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var poses []trajectory.Pose
	for i, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		pose, err := trajectory.ParseFields(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", path, i+1)
		}
		poses = append(poses, pose)
	}
	return poses, nil
}
