package trajectory

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFormatFloat(t *testing.T) {
	test.That(t, FormatFloat(1), test.ShouldEqual, "1")
	test.That(t, FormatFloat(-0.25), test.ShouldEqual, "-0.25")
	test.That(t, FormatFloat(1e-7), test.ShouldEqual, "0.0000001")
	a, b := 0.1, 0.2
	test.That(t, FormatFloat(a+b), test.ShouldEqual, "0.30000000000000004")
}

func TestWrite(t *testing.T) {
	records := []Record{
		{Timestamp: "1403636579.763555", Pose: NewIdentityPose()},
		{Timestamp: "1403636579.713555", Pose: NewPoseFromValues(1.5, -2, 0.125, 0, 0, 0.7071, 0.7071)},
		{Timestamp: "00003", Pose: NewPoseFromValues(0, 0, 3, 0.5, 0.5, 0.5, 0.5)},
	}
	var buf bytes.Buffer
	test.That(t, Write(&buf, records), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual,
		"1403636579.763555 0 0 0 0 0 0 1\n"+
			"1403636579.713555 1.5 -2 0.125 0 0 0.7071 0.7071\n"+
			"00003 0 0 3 0.5 0.5 0.5 0.5\n")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	test.That(t, len(lines), test.ShouldEqual, len(records))
	for i, line := range lines {
		fields := strings.Split(line, " ")
		test.That(t, len(fields), test.ShouldEqual, 8)
		test.That(t, fields[0], test.ShouldEqual, records[i].Timestamp)
		pose, err := ParseFields(fields[1:])
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose, test.ShouldResemble, records[i].Pose)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00000_KeyFrameTrajectory.txt")
	test.That(t, os.WriteFile(path, []byte("stale contents that are longer than the new file\n"), 0o600), test.ShouldBeNil)

	test.That(t, WriteFile(path, []Record{{Timestamp: "1", Pose: NewIdentityPose()}}), test.ShouldBeNil)
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "1 0 0 0 0 0 0 1\n")

	test.That(t, WriteFile(path, nil), test.ShouldBeNil)
	data, err = os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldBeEmpty)

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "out.txt"), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseFields(t *testing.T) {
	_, err := ParseFields([]string{"1", "2"})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ParseFields([]string{"1", "2", "3", "x", "0", "0", "1"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pose value 3")
}

func TestPlotTopDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trajectory.png")
	test.That(t, PlotTopDown(path, "test", nil), test.ShouldNotBeNil)

	records := []Record{
		{Timestamp: "0", Pose: NewIdentityPose()},
		{Timestamp: "1", Pose: NewPoseFromValues(0.5, 0, 1, 0, 0, 0, 1)},
		{Timestamp: "2", Pose: NewPoseFromValues(1, 0, 1.5, 0, 0, 0, 1)},
	}
	test.That(t, PlotTopDown(path, "test", records), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}
