// Package config reads run settings for the droidslam driver.
package config

import (
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alejandrofontan/DROID-SLAM/calibration"
	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/tracker"
)

// DefaultEngine is the engine used when none is configured.
const DefaultEngine = "process"

// Settings are the tunables of one run.
type Settings struct {
	// T0 is the first frame index submitted to the engine.
	T0 int `json:"t0"`
	// Stride keeps every Stride-th line of the index file.
	Stride     int    `json:"stride"`
	Verbose    bool   `json:"verbose"`
	DisableVis bool   `json:"disable_vis"`
	Engine     string `json:"engine"`

	tracker.Config
}

// Default returns the stock settings.
func Default() Settings {
	return Settings{
		T0:     0,
		Stride: 1,
		Engine: DefaultEngine,
		Config: tracker.DefaultConfig(),
	}
}

// Validate ensures all parts of the settings are valid.
func (s *Settings) Validate(path string) error {
	if s.T0 < 0 {
		return errors.Errorf("%s: t0 cannot be negative, got %d", path, s.T0)
	}
	if s.Stride < 1 {
		return errors.Errorf("%s: stride must be at least 1, got %d", path, s.Stride)
	}
	if s.Engine == "" {
		return errors.Errorf("%s: engine must be set", path)
	}
	return s.Config.Validate(path)
}

// ReadSettingsFile overlays the settings file at path on the defaults. Keys may sit at the top
// level or under a "settings" mapping; the nested mapping wins. Unknown keys are logged and
// ignored.
func ReadSettingsFile(path string, logger logging.Logger) (Settings, error) {
	settings := Default()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, errors.Wrap(err, "cannot read settings file")
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(calibration.StripYAMLHeader(data), &raw); err != nil {
		return settings, errors.Wrapf(err, "cannot parse settings file %q", path)
	}
	attributes := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "settings" {
			continue
		}
		attributes[k] = v
	}
	if nested, ok := raw["settings"]; ok && nested != nil {
		nestedMap, ok := nested.(map[string]interface{})
		if !ok {
			return settings, errors.Errorf("%s: settings must be a mapping, got %T", path, nested)
		}
		for k, v := range nestedMap {
			attributes[k] = v
		}
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &settings,
		Metadata:         &md,
		WeaklyTypedInput: true,
		Squash:           true,
	})
	if err != nil {
		return settings, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return settings, errors.Wrapf(err, "invalid settings in %q", path)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		logger.Warnw("ignoring unknown settings", "path", path, "keys", md.Unused)
	}
	return settings, nil
}
