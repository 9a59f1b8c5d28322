package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/JakeFAU/vaultdl/internal/app"
	"github.com/JakeFAU/vaultdl/internal/config"
	"github.com/JakeFAU/vaultdl/internal/logging"
)

// runFunc executes a download. Tests substitute a fake.
type runFunc func(ctx context.Context, p app.Params) (app.Result, error)

// flagBindings maps cobra flags onto configuration keys.
var flagBindings = map[string]string{
	"no-photos":      "filter.no_photos",
	"no-audio-video": "filter.no_audio_video",
	"no-documents":   "filter.no_documents",
	"threads":        "download.threads",
	"strict":         "sanitize.strict",
	"error-log":      "download.error_log",
	"metrics-file":   "metrics.textfile",
	"verbose":        "logging.verbose",
}

func newRootCmd(runner runFunc) *cobra.Command {
	if runner == nil {
		runner = app.Run
	}
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vaultdl URL DESTINATION_FOLDER",
		Short: "Download every file of a published vault",
		Long: `vaultdl reads the site descriptor embedded in a published vault page,
fetches the vault's file manifest and downloads each entry into
DESTINATION_FOLDER, preserving the directory layout. Items that fail are
recorded in the error log and the run continues.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("no-progress") {
				noProgress, _ := cmd.Flags().GetBool("no-progress")
				v.Set("progress.enabled", !noProgress)
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return execute(cmd, runner, cfg, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.Bool("no-photos", false, "skip image files")
	flags.Bool("no-audio-video", false, "skip audio and video files")
	flags.Bool("no-documents", false, "skip document files (pdf, office, html, txt)")
	flags.IntP("threads", "t", 8, "number of concurrent downloads")
	flags.Bool("strict", false, "also replace '#' in file and directory names")
	flags.String("error-log", "", "append per-item failures to this file (default error_logs/error_log.txt)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flags.Bool("no-progress", false, "disable the progress bar")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	for name, key := range flagBindings {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(name)))
	}
	return cmd
}

func execute(cmd *cobra.Command, runner runFunc, cfg config.Config, pageURL, dest string) error {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	start := time.Now()
	result, err := runner(cmd.Context(), app.Params{
		PageURL:     pageURL,
		Destination: dest,
		Config:      cfg,
		Logger:      logger,
		ProgressOut: progressWriter(cmd.ErrOrStderr(), cfg.Progress.Enabled),
	})
	if err != nil {
		return err
	}

	renderSummary(cmd.OutOrStdout(), result, time.Since(start))
	logger.Info("run complete",
		zap.Stringer("run_id", result.RunID),
		zap.Int("saved", result.Summary.Saved),
		zap.Int("failed", result.Summary.Failed()),
	)
	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("interrupted with %d entries not started: %w", result.Summary.Remaining, err)
	}
	return nil
}

// progressWriter returns w only when it is an interactive terminal.
func progressWriter(w io.Writer, enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return f
}
