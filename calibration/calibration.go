// Package calibration loads per-sequence pinhole camera calibration files.
package calibration

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alejandrofontan/DROID-SLAM/rimage/transform"
)

// yamlHeader is the directive OpenCV writes at the top of its YAML files.
const yamlHeader = "%YAML:1.0"

// ErrMissingCalibrationKey is returned (wrapped) when a required Camera.* key is absent.
var ErrMissingCalibrationKey = errors.New("missing calibration key")

// Parameters are the intrinsics and Brown-Conrady coefficients of one camera.
type Parameters struct {
	Fx, Fy, Cx, Cy     float64
	K1, K2, P1, P2, K3 float64

	// Width and Height are zero unless the file carries Camera.width and Camera.height.
	Width, Height int
}

type calibrationFile struct {
	Fx *float64 `yaml:"Camera.fx"`
	Fy *float64 `yaml:"Camera.fy"`
	Cx *float64 `yaml:"Camera.cx"`
	Cy *float64 `yaml:"Camera.cy"`
	K1 *float64 `yaml:"Camera.k1"`
	K2 *float64 `yaml:"Camera.k2"`
	P1 *float64 `yaml:"Camera.p1"`
	P2 *float64 `yaml:"Camera.p2"`
	K3 *float64 `yaml:"Camera.k3"`

	Width  int `yaml:"Camera.width"`
	Height int `yaml:"Camera.height"`
}

// Load reads and parses the calibration file at path.
func Load(path string) (*Parameters, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open calibration file")
	}
	defer f.Close() //nolint:errcheck
	params, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse calibration file %q", path)
	}
	return params, nil
}

// Parse reads calibration YAML from r. A leading %YAML:1.0 line is dropped.
func Parse(r io.Reader) (*Parameters, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = StripYAMLHeader(data)

	var raw calibrationFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "invalid calibration yaml")
	}

	var missing []string
	required := []struct {
		key string
		val *float64
	}{
		{"Camera.fx", raw.Fx}, {"Camera.fy", raw.Fy}, {"Camera.cx", raw.Cx}, {"Camera.cy", raw.Cy},
		{"Camera.k1", raw.K1}, {"Camera.k2", raw.K2}, {"Camera.p1", raw.P1}, {"Camera.p2", raw.P2}, {"Camera.k3", raw.K3},
	}
	for _, req := range required {
		if req.val == nil {
			missing = append(missing, req.key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(ErrMissingCalibrationKey, strings.Join(missing, ", "))
	}

	return &Parameters{
		Fx: *raw.Fx, Fy: *raw.Fy, Cx: *raw.Cx, Cy: *raw.Cy,
		K1: *raw.K1, K2: *raw.K2, P1: *raw.P1, P2: *raw.P2, K3: *raw.K3,
		Width: raw.Width, Height: raw.Height,
	}, nil
}

// StripYAMLHeader drops a leading %YAML:1.0 line, which OpenCV writes and yaml.v3 rejects.
func StripYAMLHeader(data []byte) []byte {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i+1]
	}
	if strings.TrimSpace(string(first)) == yamlHeader {
		return data[len(first):]
	}
	return data
}

// DistortionCoefficients returns the coefficients in k1, k2, k3, p1, p2 order.
func (p *Parameters) DistortionCoefficients() []float64 {
	return []float64{p.K1, p.K2, p.K3, p.P1, p.P2}
}

// HasDistortion reports whether any distortion coefficient is nonzero.
func (p *Parameters) HasDistortion() bool {
	bc, err := transform.NewBrownConrady(p.DistortionCoefficients())
	return err == nil && !bc.IsIdentity()
}

// Intrinsics returns the pinhole intrinsics for an image of the given size.
func (p *Parameters) Intrinsics(width, height int) transform.PinholeCameraIntrinsics {
	return transform.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     p.Fx,
		Fy:     p.Fy,
		Ppx:    p.Cx,
		Ppy:    p.Cy,
	}
}

// Model returns the validated camera model used to undistort images of the given size.
func (p *Parameters) Model(width, height int) (*transform.PinholeCameraModel, error) {
	intrinsics := p.Intrinsics(width, height)
	distorter, err := transform.NewDistorter(transform.BrownConradyDistortionType, p.DistortionCoefficients())
	if err != nil {
		return nil, err
	}
	model := &transform.PinholeCameraModel{PinholeCameraIntrinsics: &intrinsics, Distortion: distorter}
	if err := model.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid calibration")
	}
	return model, nil
}
