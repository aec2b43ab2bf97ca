package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Bahadou-Badr/segsweep/internal/config"
	"github.com/Bahadou-Badr/segsweep/internal/logging"
	"github.com/Bahadou-Badr/segsweep/internal/metrics"
	"github.com/Bahadou-Badr/segsweep/internal/queue"
	"github.com/Bahadou-Badr/segsweep/internal/segmenter"
	"github.com/Bahadou-Badr/segsweep/internal/server"
	"github.com/Bahadou-Badr/segsweep/internal/sweep"
	"github.com/Bahadou-Badr/segsweep/internal/track"
)

type runFlags struct {
	configPath   string
	annotBeats   bool
	annotBounds  bool
	dataset      string
	jobs         int
	segmenter    string
	checkExit    bool
	sharedBounds bool
	scratchDir   string
	logLevel     string
	logFormat    string
	logFile      string
	metricsAddr  string
	natsURL      string
}

func newRootCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "segsweep <in_path> <feature>",
		Short: "Run the segmenter across a segmentation dataset",
		Long: "Runs the external segmenter over every feature/annotation pair of a dataset.\n" +
			"feature is one of mfcc, hpcp or tonnetz.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "Configuration file path (default ./"+config.DefaultFileName+" if present)")
	flags.BoolVarP(&f.annotBeats, "annot-beats", "b", false, "Use annotated beats")
	flags.BoolVar(&f.annotBounds, "annot-bounds", false, "Use annotated bounds (also accepted as -bo)")
	flags.StringVarP(&f.dataset, "dataset", "d", "*", "The prefix of the dataset to use (e.g. Isophonics, SALAMI)")
	flags.IntVarP(&f.jobs, "jobs", "j", 4, "The number of tracks to process in parallel")
	flags.StringVar(&f.segmenter, "segmenter", segmenter.DefaultPath, "Segmenter executable")
	flags.BoolVar(&f.checkExit, "check-exit", false, "Report non-zero segmenter exits as failures")
	flags.BoolVar(&f.sharedBounds, "shared-bounds-file", false, "Write annot_bounds.json in the working directory and serialise bounded tracks")
	flags.StringVar(&f.scratchDir, "scratch-dir", "", "Parent directory for per-track scratch directories")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&f.logFormat, "log-format", "auto", "Log format (auto, console, json)")
	flags.StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this rotating file")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /health, /ready, /status and /metrics on this address")
	flags.StringVar(&f.natsURL, "nats-url", "", "Publish per-track events to this NATS server")

	return cmd
}

// resolve loads the config file and lets explicitly set flags override it.
func (f runFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Dataset = f.dataset
	}
	if flags.Changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if flags.Changed("segmenter") {
		cfg.Segmenter = f.segmenter
	}
	if flags.Changed("check-exit") {
		cfg.CheckExit = f.checkExit
	}
	if flags.Changed("shared-bounds-file") {
		cfg.SharedBoundsFile = f.sharedBounds
	}
	if flags.Changed("scratch-dir") {
		cfg.ScratchDir = f.scratchDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if flags.Changed("nats-url") {
		cfg.NatsURL = f.natsURL
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, out io.Writer, cfg config.Config, inPath, feature string, f runFlags) error {
	if err := logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		return err
	}
	log := logging.Logger
	defer func() { _ = log.Sync() }()

	metrics.Register()

	if !config.IsKnownFeature(feature) {
		log.Warn("unknown feature, passing it through", zap.String("feature", feature), zap.Strings("known", config.KnownFeatures))
	}

	var events queue.Publisher = queue.Nop{}
	if cfg.NatsURL != "" {
		nc, err := queue.NewNatsClient(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			log.Warn("nats unavailable, track events disabled", zap.String("url", cfg.NatsURL), zap.Error(err))
		} else {
			events = nc
		}
	}
	defer events.Close()

	runner := sweep.NewRunner(sweep.Options{
		InPath:     inPath,
		Dataset:    cfg.Dataset,
		Jobs:       cfg.Jobs,
		ScratchDir: cfg.ScratchDir,
		Track: track.Options{
			AnnotBeats:       f.annotBeats,
			Feature:          feature,
			AnnotBounds:      f.annotBounds,
			Segmenter:        cfg.Segmenter,
			CheckExit:        cfg.CheckExit,
			SharedBoundsFile: cfg.SharedBoundsFile,
		},
	}, sweep.Deps{
		Invoker: segmenter.Exec{},
		Events:  events,
		Logger:  log,
	})

	if cfg.MetricsAddr != "" {
		opsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if _, err := server.NewOps(runner.Progress()).Run(opsCtx, cfg.MetricsAddr); err != nil {
			return err
		}
		log.Info("ops server listening", zap.String("addr", cfg.MetricsAddr))
	}

	sum, err := runner.Run(ctx)
	if sum != nil {
		renderSummary(out, sum)
	}
	return err
}
