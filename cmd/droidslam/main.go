// Package main runs a tracking engine over an image sequence and writes the estimated keyframe
// trajectory.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/term"

	"github.com/alejandrofontan/DROID-SLAM/config"
	"github.com/alejandrofontan/DROID-SLAM/logging"
	"github.com/alejandrofontan/DROID-SLAM/slam"
	_ "github.com/alejandrofontan/DROID-SLAM/tracker/register"
)

var logger = logging.NewLogger("droidslam")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	SequencePath    string `flag:"sequence_path,required,usage=directory the image index refers to"`
	CalibrationYAML string `flag:"calibration_yaml,required,usage=OpenCV style calibration file"`
	RGBTxt          string `flag:"rgb_txt,required,usage=index file listing timestamp and image path per line"`
	ExpFolder       string `flag:"exp_folder,required,usage=directory receiving the trajectory"`
	ExpIt           string `flag:"exp_it,required,usage=experiment iteration naming the trajectory file"`
	SettingsYAML    string `flag:"settings_yaml,usage=settings file overriding the defaults"`

	Engine       string `flag:"engine,usage=tracking engine (process or fake)"`
	EngineBinary string `flag:"engine_binary,usage=engine executable for the process engine"`
	EngineArgs   string `flag:"engine_args,usage=extra space separated engine arguments"`
	DataDir      string `flag:"data_dir,usage=parent directory of the engine exchange directory"`
	Weights      string `flag:"weights,usage=network weights"`

	T0         config.OptionalInt  `flag:"t0,usage=first frame submitted to the engine"`
	Stride     config.OptionalInt  `flag:"stride,usage=keep every n-th index line"`
	Verbose    config.OptionalBool `flag:"verbose,usage=debug logging (0 or 1)"`
	DisableVis config.OptionalBool `flag:"disable_vis,usage=disable the frame viewer (0 or 1)"`
	Upsample   config.OptionalBool `flag:"upsample,usage=upsample disparities (0 or 1)"`

	Buffer         config.OptionalInt   `flag:"buffer,usage=keyframe buffer size"`
	Beta           config.OptionalFloat `flag:"beta,usage=weight of translation in frame distance"`
	FilterThresh   config.OptionalFloat `flag:"filter_thresh,usage=motion threshold before a frame is considered"`
	Warmup         config.OptionalInt   `flag:"warmup,usage=frames before initialization"`
	KeyframeThresh config.OptionalFloat `flag:"keyframe_thresh,usage=distance threshold for keyframe removal"`
	FrontendThresh config.OptionalFloat `flag:"frontend_thresh,usage=frontend proximity edge threshold"`
	FrontendWindow config.OptionalInt   `flag:"frontend_window,usage=frontend optimization window"`
	FrontendRadius config.OptionalInt   `flag:"frontend_radius,usage=frontend neighbor radius"`
	FrontendNMS    config.OptionalInt   `flag:"frontend_nms,usage=frontend non-maximum suppression"`
	BackendThresh  config.OptionalFloat `flag:"backend_thresh,usage=backend proximity edge threshold"`
	BackendRadius  config.OptionalInt   `flag:"backend_radius,usage=backend neighbor radius"`
	BackendNMS     config.OptionalInt   `flag:"backend_nms,usage=backend non-maximum suppression"`

	Plot    bool   `flag:"plot,usage=also save a top-down plot of the trajectory"`
	LogFile string `flag:"log_file,usage=also write logs to this rotated file"`
}

func (args *Arguments) overrides() config.Overrides {
	return config.Overrides{
		T0:             args.T0,
		Stride:         args.Stride,
		Verbose:        args.Verbose,
		DisableVis:     args.DisableVis,
		Upsample:       args.Upsample,
		Engine:         args.Engine,
		Weights:        args.Weights,
		Buffer:         args.Buffer,
		Beta:           args.Beta,
		FilterThresh:   args.FilterThresh,
		Warmup:         args.Warmup,
		KeyframeThresh: args.KeyframeThresh,
		FrontendThresh: args.FrontendThresh,
		FrontendWindow: args.FrontendWindow,
		FrontendRadius: args.FrontendRadius,
		FrontendNMS:    args.FrontendNMS,
		BackendThresh:  args.BackendThresh,
		BackendRadius:  args.BackendRadius,
		BackendNMS:     args.BackendNMS,
	}
}

// settingsFromArguments layers explicit flags over the settings file over the defaults.
func settingsFromArguments(args *Arguments, logger logging.Logger) (config.Settings, error) {
	settings := config.Default()
	if args.SettingsYAML != "" {
		var err error
		if settings, err = config.ReadSettingsFile(args.SettingsYAML, logger); err != nil {
			return config.Settings{}, err
		}
	}
	overrides := args.overrides()
	overrides.Apply(&settings)

	if args.EngineBinary != "" {
		settings.Host.Binary = args.EngineBinary
	}
	if args.EngineArgs != "" {
		settings.Host.Args = strings.Fields(args.EngineArgs)
	}
	if args.DataDir != "" {
		settings.Host.DataDirectory = args.DataDir
	}
	return settings, settings.Validate("settings")
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	if argsParsed.LogFile != "" {
		appender, closer := logging.NewFileAppender(argsParsed.LogFile, 100)
		logger.AddAppender(appender)
		defer func() {
			err = multierr.Combine(err, closer.Close())
		}()
	}

	settings, err := settingsFromArguments(&argsParsed, logger)
	if err != nil {
		return err
	}
	if settings.Verbose {
		logger.SetLevel(logging.DEBUG)
	}
	logger.Debugw("settings", "settings", settings)

	if err := os.MkdirAll(argsParsed.ExpFolder, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create experiment folder %q", argsParsed.ExpFolder)
	}

	result, err := slam.Run(ctx, slam.Options{
		SequencePath:    argsParsed.SequencePath,
		IndexPath:       argsParsed.RGBTxt,
		CalibrationPath: argsParsed.CalibrationYAML,
		ExpFolder:       argsParsed.ExpFolder,
		ExpIt:           argsParsed.ExpIt,
		Settings:        settings,
		Plot:            argsParsed.Plot,
		ShowProgress:    !settings.Verbose && term.IsTerminal(int(os.Stdout.Fd())),
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("run summary\n" + result.String())
	return nil
}
