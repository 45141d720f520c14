// Package trajectory holds estimated camera poses and their text serialization.
package trajectory

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a camera pose: a translation and a unit quaternion rotation.
type Pose struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// NewIdentityPose returns the pose at the origin with no rotation.
func NewIdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPoseFromValues builds a pose from tx ty tz qx qy qz qw.
func NewPoseFromValues(tx, ty, tz, qx, qy, qz, qw float64) Pose {
	return Pose{
		Translation: r3.Vector{X: tx, Y: ty, Z: tz},
		Rotation:    quat.Number{Real: qw, Imag: qx, Jmag: qy, Kmag: qz},
	}
}

// Values returns the pose as tx ty tz qx qy qz qw.
func (p Pose) Values() [7]float64 {
	return [7]float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.Imag, p.Rotation.Jmag, p.Rotation.Kmag, p.Rotation.Real,
	}
}

// Record is a pose stamped with the timestamp of the frame it was estimated for.
type Record struct {
	Timestamp string
	Pose
}

// FormatFloat renders v as the shortest decimal string that round-trips, without an exponent.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFields parses seven whitespace-separated values tx ty tz qx qy qz qw.
func ParseFields(fields []string) (Pose, error) {
	if len(fields) != 7 {
		return Pose{}, errors.Errorf("expected 7 pose values, got %d", len(fields))
	}
	var vals [7]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Pose{}, errors.Wrapf(err, "pose value %d", i)
		}
		vals[i] = v
	}
	return NewPoseFromValues(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6]), nil
}

// Write emits one "timestamp tx ty tz qx qy qz qw" line per record, in order.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	fields := make([]string, 8)
	for _, rec := range records {
		fields[0] = rec.Timestamp
		for i, v := range rec.Values() {
			fields[i+1] = FormatFloat(v)
		}
		if _, err := bw.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile creates or truncates path and writes records to it.
func WriteFile(path string, records []Record) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create trajectory file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := Write(f, records); err != nil {
		return errors.Wrapf(err, "cannot write trajectory file %q", path)
	}
	return nil
}
