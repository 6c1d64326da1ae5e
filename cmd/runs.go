package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freshplan/app"
	"github.com/kilianp07/freshplan/core/runlog"
	"github.com/kilianp07/freshplan/infra/logger"
)

var runsFlags struct {
	since    string
	status   string
	scenario string
	limit    int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded planning runs",
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.since, "since", "", "only runs after a duration ago (24h) or a date (2006-01-02)")
	f.StringVar(&runsFlags.status, "status", "", "filter by termination status")
	f.StringVar(&runsFlags.scenario, "scenario", "", "filter by scenario name")
	f.IntVar(&runsFlags.limit, "limit", 20, "number of most recent runs to show, 0 for all")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, _ []string) error {
	since, err := parseSince(runsFlags.since, time.Now())
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg, app.WithLogger(logger.New("runs")))
	if err != nil {
		return err
	}
	defer svc.Close()

	recs, err := svc.Runs(cmd.Context(), runlog.Query{
		Since:    since,
		Status:   runsFlags.status,
		Scenario: runsFlags.scenario,
		Limit:    runsFlags.limit,
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tSCENARIO\tSTATUS\tOBJECTIVE\tFILL RATE\tDURATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f%%\t%s\n",
			r.RunID, r.Timestamp.Local().Format(time.DateTime), r.Scenario, r.Status,
			r.Objective, 100*r.FillRate, time.Duration(r.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}

func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a duration or a date", v)
	}
	return t, nil
}
