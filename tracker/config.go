package tracker

import "github.com/pkg/errors"

// Config carries the engine tunables. Field tags double as settings-file keys.
type Config struct {
	Weights        string  `json:"weights"`
	Buffer         int     `json:"buffer"`
	Stereo         bool    `json:"stereo"`
	Beta           float64 `json:"beta"`
	FilterThresh   float64 `json:"filter_thresh"`
	Warmup         int     `json:"warmup"`
	KeyframeThresh float64 `json:"keyframe_thresh"`
	FrontendThresh float64 `json:"frontend_thresh"`
	FrontendWindow int     `json:"frontend_window"`
	FrontendRadius int     `json:"frontend_radius"`
	FrontendNMS    int     `json:"frontend_nms"`
	BackendThresh  float64 `json:"backend_thresh"`
	BackendRadius  int     `json:"backend_radius"`
	BackendNMS     int     `json:"backend_nms"`
	Upsample       bool    `json:"upsample"`

	// ImageSize is [height, width] of the first submitted frame. It is filled in by the driver.
	ImageSize [2]int `json:"-"`

	Host Host `json:"host"`
}

// Host describes where an out-of-process engine runs.
type Host struct {
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
	// DataDirectory is the parent of per-run exchange directories. Defaults to the system
	// temp directory.
	DataDirectory string `json:"data_dir"`
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		Weights:        "droid.pth",
		Buffer:         512,
		Beta:           0.3,
		FilterThresh:   2.4,
		Warmup:         8,
		KeyframeThresh: 4.0,
		FrontendThresh: 16.0,
		FrontendWindow: 25,
		FrontendRadius: 2,
		FrontendNMS:    1,
		BackendThresh:  22.0,
		BackendRadius:  2,
		BackendNMS:     3,
	}
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) error {
	if config.Weights == "" {
		return errors.Errorf("%s: weights must be set", path)
	}
	if config.Buffer <= 0 {
		return errors.Errorf("%s: buffer must be positive, got %d", path, config.Buffer)
	}
	if config.FrontendWindow <= 0 {
		return errors.Errorf("%s: frontend_window must be positive, got %d", path, config.FrontendWindow)
	}
	if config.Warmup < 0 {
		return errors.Errorf("%s: warmup cannot be negative", path)
	}
	for _, threshold := range []struct {
		name string
		val  float64
	}{
		{"beta", config.Beta},
		{"filter_thresh", config.FilterThresh},
		{"keyframe_thresh", config.KeyframeThresh},
		{"frontend_thresh", config.FrontendThresh},
		{"backend_thresh", config.BackendThresh},
		{"frontend_radius", float64(config.FrontendRadius)},
		{"frontend_nms", float64(config.FrontendNMS)},
		{"backend_radius", float64(config.BackendRadius)},
		{"backend_nms", float64(config.BackendNMS)},
	} {
		if threshold.val < 0 {
			return errors.Errorf("%s: %s cannot be negative, got %v", path, threshold.name, threshold.val)
		}
	}
	return nil
}
