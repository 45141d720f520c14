package process

import (
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"
	goutils "go.viam.com/utils"
	"gorgonia.org/tensor"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
	"github.com/alejandrofontan/DROID-SLAM/stream"
	"github.com/alejandrofontan/DROID-SLAM/tracker"
)

// engineScript stands in for the engine binary: it waits for the done marker, answers with
// one pose per timestamp line and one keyframe pose per tracked frame, then idles.
const engineScript = `#!/bin/sh
for arg in "$@"; do
	case "$arg" in
		-data_dir=*) DATA="${arg#-data_dir=}" ;;
	esac
done
while [ ! -f "$DATA/data/done" ]; do sleep 0.05; done
while read idx ts fx fy cx cy; do
	echo "$idx 0 0 $idx 0 0 0 1" >> "$DATA/map/trajectory.tmp"
done < "$DATA/data/timestamps.txt"
while read idx fx fy cx cy; do
	echo "0 0 $idx 0 0 0 1" >> "$DATA/map/keyframes.txt"
done < "$DATA/data/frames.txt"
mv "$DATA/map/trajectory.tmp" "$DATA/map/trajectory.txt"
exec sleep 60
`

type sliceFrames struct {
	frames []*stream.FrameRecord
	pos    int
}

func (s *sliceFrames) Next(ctx context.Context) bool {
	if s.pos >= len(s.frames) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceFrames) Frame() *stream.FrameRecord { return s.frames[s.pos-1] }

func (s *sliceFrames) Err() error { return nil }

// crashingEngineScript exits as soon as it starts.
const crashingEngineScript = `#!/bin/sh
exit 3
`

func testConfig(t *testing.T) tracker.Config {
	t.Helper()
	return scriptConfig(t, engineScript)
}

func scriptConfig(t *testing.T, body string) tracker.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available to host the engine")
	}
	script := filepath.Join(t.TempDir(), "engine.sh")
	test.That(t, os.WriteFile(script, []byte(body), 0o700), test.ShouldBeNil)

	config := tracker.DefaultConfig()
	config.ImageSize = [2]int{8, 16}
	config.Host = tracker.Host{Binary: "sh", Args: []string{script}, DataDirectory: t.TempDir()}
	return config
}

func TestProcessEngine(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine, err := NewEngine(ctx, testConfig(t), logger)
	test.That(t, err, test.ShouldBeNil)
	defer goutils.UncheckedErrorFunc(func() error { return engine.Close(context.Background()) })

	settings, err := os.ReadFile(filepath.Join(engine.DataDirectory(), "config", "settings.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.HasPrefix(string(settings), "%YAML:1.0\n"), test.ShouldBeTrue)
	test.That(t, string(settings), test.ShouldContainSubstring, "DROID.weights: droid.pth")
	test.That(t, string(settings), test.ShouldContainSubstring, "Camera.width: 16")

	intrinsics := transform.PinholeCameraIntrinsics{Width: 16, Height: 8, Fx: 10, Fy: 11, Ppx: 8, Ppy: 4}
	frameTensor := tensor.New(tensor.WithShape(1, 3, 8, 16), tensor.WithBacking(make([]uint8, 3*8*16)))
	for _, idx := range []int{1, 2} {
		test.That(t, engine.Track(ctx, idx, frameTensor, intrinsics), test.ShouldBeNil)
	}
	err = engine.Track(ctx, 3, tensor.New(tensor.WithShape(1, 3, 4, 4), tensor.WithBacking(make([]uint8, 48))), intrinsics)
	test.That(t, err, test.ShouldNotBeNil)

	frameList, err := os.ReadFile(filepath.Join(engine.DataDirectory(), "data", "frames.txt"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(frameList), test.ShouldEqual, "1 10 11 8 4\n2 10 11 8 4\n")
	_, err = os.Stat(frameImagePath(engine.DataDirectory(), 2))
	test.That(t, err, test.ShouldBeNil)

	frames := &sliceFrames{}
	for i := 0; i < 3; i++ {
		frames.frames = append(frames.frames, &stream.FrameRecord{
			Index:      i,
			Timestamp:  "17.5",
			Image:      image.NewNRGBA(image.Rect(0, 0, 16, 8)),
			Intrinsics: intrinsics,
		})
	}
	poses, err := engine.Terminate(ctx, frames)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(poses), test.ShouldEqual, 3)
	for i, pose := range poses {
		test.That(t, pose.Index, test.ShouldEqual, i)
		test.That(t, pose.Translation.Z, test.ShouldEqual, float64(i))
		test.That(t, pose.Rotation.Real, test.ShouldEqual, 1.)
	}
	_, err = os.Stat(frameImagePath(engine.DataDirectory(), 0))
	test.That(t, err, test.ShouldBeNil)

	keyframes := engine.BufferedPoses(10)
	test.That(t, len(keyframes), test.ShouldEqual, 2)
	test.That(t, keyframes[1].Translation.Z, test.ShouldEqual, 2.)
	test.That(t, engine.BufferedPoses(1), test.ShouldHaveLength, 1)

	_, err = engine.Terminate(ctx, &sliceFrames{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewEngineErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	config := tracker.DefaultConfig()
	config.ImageSize = [2]int{8, 8}
	_, err := NewEngine(context.Background(), config, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "binary")

	config.Host.Binary = "sh"
	config.ImageSize = [2]int{}
	_, err = NewEngine(context.Background(), config, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWaitForFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trajectory.txt")

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		test.That(t, waitForFile(ctx, path, nil), test.ShouldBeError, context.DeadlineExceeded)
	})

	t.Run("renamed into place", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		go func() {
			time.Sleep(20 * time.Millisecond)
			tmp := filepath.Join(dir, "trajectory.tmp")
			if err := os.WriteFile(tmp, []byte("0 0 0 0 0 0 0 1\n"), 0o600); err == nil {
				//nolint:errcheck
				os.Rename(tmp, path)
			}
		}()
		test.That(t, waitForFile(ctx, path, nil), test.ShouldBeNil)
	})

	t.Run("already present", func(t *testing.T) {
		test.That(t, waitForFile(context.Background(), path, nil), test.ShouldBeNil)
	})

	t.Run("process exited", func(t *testing.T) {
		exited := make(chan struct{})
		close(exited)
		err := waitForFile(context.Background(), filepath.Join(dir, "never.txt"), exited)
		test.That(t, err, test.ShouldBeError, errProcessExited)

		test.That(t, waitForFile(context.Background(), path, exited), test.ShouldBeNil)
	})
}

func TestEngineProcessExit(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine, err := NewEngine(ctx, scriptConfig(t, crashingEngineScript), logger)
	test.That(t, err, test.ShouldBeNil)
	defer goutils.UncheckedErrorFunc(func() error { return engine.Close(context.Background()) })

	select {
	case <-engine.exited:
	case <-ctx.Done():
		t.Fatal("engine exit was not observed")
	}

	intrinsics := transform.PinholeCameraIntrinsics{Width: 16, Height: 8, Fx: 10, Fy: 11, Ppx: 8, Ppy: 4}
	frameTensor := tensor.New(tensor.WithShape(1, 3, 8, 16), tensor.WithBacking(make([]uint8, 3*8*16)))
	err = engine.Track(ctx, 0, frameTensor, intrinsics)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exited with code 3")

	frames := &sliceFrames{frames: []*stream.FrameRecord{{
		Index:      0,
		Timestamp:  "1.0",
		Image:      image.NewNRGBA(image.Rect(0, 0, 16, 8)),
		Intrinsics: intrinsics,
	}}}
	start := time.Now()
	_, err = engine.Terminate(ctx, frames)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exited with code 3")
	test.That(t, ctx.Err(), test.ShouldBeNil)
	test.That(t, time.Since(start), test.ShouldBeLessThan, 5*time.Second)
}

func TestReadTrajectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trajectory.txt")
	test.That(t, os.WriteFile(path, []byte("0 1 2 3 0 0 0 1\n\n4 0.5 0 0 0 0 0.7071 0.7071\n"), 0o600), test.ShouldBeNil)
	poses, err := readTrajectory(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(poses), test.ShouldEqual, 2)
	test.That(t, poses[1].Index, test.ShouldEqual, 4)
	test.That(t, poses[0].Translation.Y, test.ShouldEqual, 2.)
	test.That(t, poses[1].Rotation.Kmag, test.ShouldEqual, 0.7071)

	test.That(t, os.WriteFile(path, []byte("0 1 2 3\n"), 0o600), test.ShouldBeNil)
	_, err = readTrajectory(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 1")

	test.That(t, os.WriteFile(path, []byte("x 1 2 3 0 0 0 1\n"), 0o600), test.ShouldBeNil)
	_, err = readTrajectory(path)
	test.That(t, err, test.ShouldNotBeNil)
}
