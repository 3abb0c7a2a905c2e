package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/state"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded mirror runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show")
	cmd.Flags().String("folder", "", "only show runs of this folder ID")
	cmd.Flags().Bool("last-success", false, "show only the most recent successful run (requires --folder)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	folder, _ := cmd.Flags().GetString("folder")
	lastSuccess, _ := cmd.Flags().GetBool("last-success")
	if lastSuccess && folder == "" {
		return fmt.Errorf("--last-success requires --folder")
	}

	mgr, err := state.NewManager(cfg.State.Dir)
	if err != nil {
		return err
	}
	defer mgr.Close()

	out := cmd.OutOrStdout()

	if lastSuccess {
		run, err := mgr.GetLastSuccess(folder)
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintf(out, "No successful run recorded for %s\n", folder)
			return nil
		}
		return printRuns(out, []state.RunRecord{*run})
	}

	var runs []state.RunRecord
	if folder != "" {
		runs, err = mgr.GetHistory(folder, limit)
	} else {
		runs, err = mgr.GetAllHistory(limit)
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	return printRuns(out, runs)
}

func printRuns(out io.Writer, runs []state.RunRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tFOLDER\tDESTINATION\tFILES\tDOWNLOADED\tSKIPPED\tFAILED\tFAILED DIRS\tSIZE\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.StartTime.Local().Format(time.DateTime),
			r.Status,
			r.FolderID,
			r.Destination,
			r.FilesTotal,
			r.Downloaded,
			r.Skipped,
			r.Failed,
			r.FoldersFailed,
			progress.FormatBytes(r.Bytes),
			r.EndTime.Sub(r.StartTime).Round(time.Second),
		)
	}
	return w.Flush()
}
