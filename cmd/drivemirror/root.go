package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivemirror/internal/adapter/gdrive"
	"github.com/Ning0612/drivemirror/internal/config"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/service"
	"github.com/Ning0612/drivemirror/internal/state"
)

const usageLine = "drivemirror <FOLDER_REFERENCE> <DESTINATION_PATH> [MAX_WORKERS]"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   usageLine,
		Short: "Mirror a shared Google Drive folder to a local directory",
		Long: `drivemirror recursively downloads every file under a Google Drive folder
into DESTINATION_PATH, recreating the folder hierarchy. Files that already
exist locally are skipped, so an interrupted run can simply be repeated.

FOLDER_REFERENCE is a sharing link such as
  https://drive.google.com/drive/folders/<ID>
MAX_WORKERS limits concurrent downloads per folder (default 4).`,
		Args:          mirrorArgs,
		SilenceErrors: true,
		RunE:          runMirror,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default: config.yaml in ., ./configs or the user config dir)")
	pf.String("credentials", "", "service account key file")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json")
	pf.String("log-file", "", "also write logs to this file (rotated)")

	f := cmd.Flags()
	f.Bool("no-progress", false, "do not render the progress bar")
	f.Bool("no-verify", false, "skip MD5 verification of downloads")
	f.Bool("no-history", false, "do not record this run in the history database")

	cmd.AddCommand(newAuthCmd(), newHistoryCmd())
	return cmd
}

func mirrorArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("requires FOLDER_REFERENCE and DESTINATION_PATH")
	}
	if len(args) > 3 {
		return fmt.Errorf("accepts at most 3 arguments, received %d", len(args))
	}
	return nil
}

// parseWorkers validates the optional MAX_WORKERS argument
func parseWorkers(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("MAX_WORKERS must be a positive integer, got %q", s)
	}
	return n, nil
}

// loadConfig reads configuration with the command's flags applied on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

func authOptions(cfg *config.Config) gdrive.AuthOptions {
	return gdrive.AuthOptions{
		Mode:            cfg.AuthMode,
		CredentialsFile: cfg.Credentials,
		Scope:           cfg.Scope,
		ClientID:        cfg.OAuth.ClientID,
		ClientSecret:    cfg.OAuth.ClientSecret,
		TokenPath:       cfg.OAuth.TokenPath,
	}
}

func newRemote(ctx context.Context, cfg *config.Config) (*gdrive.Adapter, error) {
	opts, err := gdrive.ClientOptions(ctx, authOptions(cfg))
	if err != nil {
		return nil, err
	}
	return gdrive.New(ctx, opts...)
}

func runMirror(cmd *cobra.Command, args []string) error {
	// Argument errors print usage, runtime errors do not
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if _, err := gdrive.ParseFolderReference(args[0]); err != nil {
		return err
	}

	workers := cfg.Workers
	if len(args) == 3 {
		if workers, err = parseWorkers(args[2]); err != nil {
			return err
		}
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return err
	}
	defer log.Shutdown()

	ctx := cmd.Context()
	remote, err := newRemote(ctx, cfg)
	if err != nil {
		log.Error("authentication failed", "error", err)
		return err
	}

	var history *state.Manager
	if cfg.State.Enabled {
		history, err = state.NewManager(cfg.State.Dir)
		if err != nil {
			log.Warn("run history disabled", "error", err)
			history = nil
		}
	}

	var reporter progress.Reporter = progress.NullReporter{}
	var bar *progress.Bar
	if cfg.Progress {
		bar = progress.NewBar(cmd.OutOrStdout(), "Downloading", 30)
		reporter = progress.NewTracker(bar.Render)
	}

	svc, err := service.NewMirrorService(remote, service.Options{
		Verify:   cfg.VerifyChecksums,
		Reporter: reporter,
		History:  history,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Run(ctx, args[0], args[1], workers)
	if bar != nil {
		bar.Finish()
	}
	if result != nil {
		printSummary(cmd, result)
	}
	return err
}

func printSummary(cmd *cobra.Command, r *service.Result) {
	s := r.Summary
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files (%d downloaded, %d skipped, %d failed), %d folders (%d failed), %s in %s\n",
		r.Status, s.Files, s.Downloaded, s.Skipped, s.Failed, s.Folders, s.FailedFolders,
		progress.FormatBytes(s.Bytes), s.Duration.Round(time.Millisecond))
}
