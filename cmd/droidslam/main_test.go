package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/rimage"
)

const calibrationYAML = `%YAML:1.0
Camera.fx: 40.0
Camera.fy: 40.0
Camera.cx: 16.0
Camera.cy: 12.0
Camera.k1: 0.0
Camera.k2: 0.0
Camera.p1: 0.0
Camera.p2: 0.0
Camera.k3: 0.0
`

func writeSequence(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	var index strings.Builder
	index.WriteString("# timestamp filename\n")
	for i := 0; i < n; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(p), uint8(i*30), 90, 255
		}
		img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
		name := fmt.Sprintf("%d.png", i)
		test.That(t, rimage.WriteImageToFile(filepath.Join(dir, name), img), test.ShouldBeNil)
		fmt.Fprintf(&index, "%d.5 %s\n", 1000+i, name)
	}
	test.That(t, os.WriteFile(filepath.Join(dir, "rgb.txt"), []byte(index.String()), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "calib.yaml"), []byte(calibrationYAML), 0o600), test.ShouldBeNil)
	return dir
}

func baseArgs(dir, expFolder string) []string {
	return []string{
		"droidslam",
		"--sequence_path", dir,
		"--calibration_yaml", filepath.Join(dir, "calib.yaml"),
		"--rgb_txt", filepath.Join(dir, "rgb.txt"),
		"--exp_folder", expFolder,
		"--exp_it", "2",
		"--engine", "fake",
		"--disable_vis", "1",
	}
}

func TestMainWithArgs(t *testing.T) {
	dir := writeSequence(t, 4)
	expFolder := filepath.Join(t.TempDir(), "exp")
	args := append(baseArgs(dir, expFolder), "--t0", "1", "--plot", "--log_file", filepath.Join(expFolder, "run.log"))

	err := mainWithArgs(context.Background(), args, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(filepath.Join(expFolder, "00002_KeyFrameTrajectory.txt"))
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 4)
	test.That(t, lines[0], test.ShouldEqual, "1000.5 0 0 0 0 0 0 1")
	test.That(t, lines[3], test.ShouldStartWith, "1003.5 ")

	_, err = os.Stat(filepath.Join(expFolder, "00002_KeyFrameTrajectory.png"))
	test.That(t, err, test.ShouldBeNil)
	logData, err := os.ReadFile(filepath.Join(expFolder, "run.log"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logData), test.ShouldContainSubstring, "trajectory written")
}

func TestMainWithArgsErrors(t *testing.T) {
	dir := writeSequence(t, 2)
	logger := logging.NewTestLogger(t)

	t.Run("missing required flag", func(t *testing.T) {
		err := mainWithArgs(context.Background(), []string{"droidslam", "--sequence_path", dir}, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "calibration_yaml")
	})

	t.Run("invalid stride", func(t *testing.T) {
		args := append(baseArgs(dir, t.TempDir()), "--stride", "0")
		err := mainWithArgs(context.Background(), args, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "stride")
	})

	t.Run("non numeric flag", func(t *testing.T) {
		args := append(baseArgs(dir, t.TempDir()), "--beta", "abc")
		err := mainWithArgs(context.Background(), args, logger)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("process engine without binary", func(t *testing.T) {
		args := append(baseArgs(dir, t.TempDir()), "--engine", "process")
		err := mainWithArgs(context.Background(), args, logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestSettingsFromArguments(t *testing.T) {
	logger := logging.NewTestLogger(t)
	settingsPath := filepath.Join(t.TempDir(), "settings.yaml")
	test.That(t, os.WriteFile(settingsPath, []byte("stride: 3\nbeta: 0.5\nsettings:\n  t0: 4\n"), 0o600), test.ShouldBeNil)

	var args Arguments
	args.SettingsYAML = settingsPath
	test.That(t, args.Stride.Set("2"), test.ShouldBeNil)
	args.EngineBinary = "/opt/droid/bin/engine"
	args.EngineArgs = "--gpu 0  --fp16"

	settings, err := settingsFromArguments(&args, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, settings.Stride, test.ShouldEqual, 2)
	test.That(t, settings.T0, test.ShouldEqual, 4)
	test.That(t, settings.Beta, test.ShouldEqual, 0.5)
	test.That(t, settings.Buffer, test.ShouldEqual, 512)
	test.That(t, settings.Host.Binary, test.ShouldEqual, "/opt/droid/bin/engine")
	test.That(t, settings.Host.Args, test.ShouldResemble, []string{"--gpu", "0", "--fp16"})

	args = Arguments{SettingsYAML: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err = settingsFromArguments(&args, logger)
	test.That(t, err, test.ShouldNotBeNil)
}
