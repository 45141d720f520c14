package process

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alejandrofontan/DROID-SLAM/tracker"
)

// file version expected by the engine host.
const fileVersion = "1.0"

// EngineSettings is used to construct the settings file handed to the engine process.
type EngineSettings struct {
	FileVersion    string  `yaml:"File.version"`
	RunID          string  `yaml:"System.runID"`
	Weights        string  `yaml:"DROID.weights"`
	Buffer         int     `yaml:"DROID.buffer"`
	Stereo         bool    `yaml:"DROID.stereo"`
	Upsample       bool    `yaml:"DROID.upsample"`
	Beta           float64 `yaml:"DROID.beta"`
	FilterThresh   float64 `yaml:"DROID.filterThresh"`
	Warmup         int     `yaml:"DROID.warmup"`
	KeyframeThresh float64 `yaml:"DROID.keyframeThresh"`
	FrontendThresh float64 `yaml:"Frontend.thresh"`
	FrontendWindow int     `yaml:"Frontend.window"`
	FrontendRadius int     `yaml:"Frontend.radius"`
	FrontendNMS    int     `yaml:"Frontend.nms"`
	BackendThresh  float64 `yaml:"Backend.thresh"`
	BackendRadius  int     `yaml:"Backend.radius"`
	BackendNMS     int     `yaml:"Backend.nms"`
	Height         int     `yaml:"Camera.height"`
	Width          int     `yaml:"Camera.width"`
}

func newEngineSettings(runID string, config tracker.Config) *EngineSettings {
	return &EngineSettings{
		FileVersion:    fileVersion,
		RunID:          runID,
		Weights:        config.Weights,
		Buffer:         config.Buffer,
		Stereo:         config.Stereo,
		Upsample:       config.Upsample,
		Beta:           config.Beta,
		FilterThresh:   config.FilterThresh,
		Warmup:         config.Warmup,
		KeyframeThresh: config.KeyframeThresh,
		FrontendThresh: config.FrontendThresh,
		FrontendWindow: config.FrontendWindow,
		FrontendRadius: config.FrontendRadius,
		FrontendNMS:    config.FrontendNMS,
		BackendThresh:  config.BackendThresh,
		BackendRadius:  config.BackendRadius,
		BackendNMS:     config.BackendNMS,
		Height:         config.ImageSize[0],
		Width:          config.ImageSize[1],
	}
}

// writeSettingsYAML writes settings to path in the OpenCV flavored YAML the engine host reads.
func writeSettingsYAML(path string, settings *EngineSettings) (err error) {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "Error while Marshaling YAML file")
	}
	addLine := "%YAML:1.0\n"
	//nolint:gosec
	outfile, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = outfile.WriteString(addLine); err != nil {
		//nolint:errcheck
		outfile.Close()
		return err
	}
	if _, err = outfile.Write(yamlData); err != nil {
		//nolint:errcheck
		outfile.Close()
		return err
	}
	return outfile.Close()
}
