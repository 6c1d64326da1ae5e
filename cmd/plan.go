package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freshplan/app"
	"github.com/kilianp07/freshplan/core/events"
	"github.com/kilianp07/freshplan/core/planning"
	"github.com/kilianp07/freshplan/infra/logger"
	"github.com/kilianp07/freshplan/internal/eventbus"
	"github.com/kilianp07/freshplan/pkg/export"
	"github.com/kilianp07/freshplan/qa/scenarios"
)

var planFlags struct {
	scenario  string
	out       string
	watch     bool
	solver    string
	timeLimit float64
	gap       float64
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build and solve a plan for a scenario file",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVarP(&planFlags.scenario, "scenario", "s", "", "scenario file (yaml, json or toml)")
	f.StringVarP(&planFlags.out, "out", "o", "", "write the plan to a .json file or .csv prefix")
	f.BoolVarP(&planFlags.watch, "watch", "w", false, "re-plan whenever the scenario file changes")
	f.StringVar(&planFlags.solver, "solver", "", "override the configured solver")
	f.Float64Var(&planFlags.timeLimit, "time-limit", 0, "override the solve time limit in seconds")
	f.Float64Var(&planFlags.gap, "gap", 0, "override the relative MIP gap")
	_ = planCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if planFlags.solver != "" {
		cfg.Solver.Type = planFlags.solver
	}
	if planFlags.timeLimit > 0 {
		cfg.Solver.TimeLimitSeconds = planFlags.timeLimit
	}
	if planFlags.gap > 0 {
		cfg.Solver.MIPGap = planFlags.gap
	}
	if err := cfg.Solver.Validate(); err != nil {
		return err
	}

	log := logger.New("plan")
	svc, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	go func() {
		if err := svc.ServeMetrics(ctx); err != nil {
			log.Errorf("prom server: %v", err)
		}
	}()
	go logProgress(ctx, svc.Bus(), log)

	sc, err := scenarios.Load(planFlags.scenario)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := planOnce(ctx, svc, cfg.Planning, sc, out); err != nil && !planFlags.watch {
		return err
	} else if err != nil {
		log.Errorf("plan %s: %v", sc.Name, err)
	}
	if !planFlags.watch {
		return nil
	}

	log.Infof("watching %s for changes", planFlags.scenario)
	return scenarios.Watch(ctx, planFlags.scenario, func(sc *scenarios.Scenario, err error) {
		if err != nil {
			log.Errorf("reload %s: %v", planFlags.scenario, err)
			return
		}
		if err := planOnce(ctx, svc, cfg.Planning, sc, out); err != nil {
			log.Errorf("plan %s: %v", sc.Name, err)
		}
	})
}

func planOnce(ctx context.Context, svc *app.Service, base planning.Params, sc *scenarios.Scenario, out io.Writer) error {
	in, params, err := sc.Input(base)
	if err != nil {
		return err
	}
	run, err := svc.Plan(ctx, sc.Name, in, params)
	var ferr *planning.FormulationError
	if err != nil && !errors.As(err, &ferr) {
		return err
	}
	printSummary(out, run)
	if failures := sc.Expected.Check(run.Result); len(failures) > 0 {
		for _, f := range failures {
			fmt.Fprintf(out, "expectation failed: %s\n", f)
		}
	}
	if run.Result.Solution != nil && planFlags.out != "" {
		if err := export.WriteFile(planFlags.out, run.Result.Solution); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(out, "plan written to %s\n", planFlags.out)
	}
	return err
}

func printSummary(w io.Writer, run *app.Run) {
	rec := run.Record
	fmt.Fprintf(w, "run %s: %s\n", run.ID, rec.Status)
	if !rec.Success {
		return
	}
	sol := run.Result.Solution
	fmt.Fprintf(w, "objective %.2f gap %.4f\n", rec.Objective, rec.Gap)
	fmt.Fprintf(w, "produced %.0f demand %.0f shortage %.0f waste %.0f fill rate %.2f%%\n",
		sol.Totals.Produced, sol.Totals.Demand, sol.Totals.Shortage, sol.Totals.Waste(), 100*sol.Totals.FillRate())
	for _, c := range planning.Categories {
		if v := sol.Costs.Line(c); !v.IsZero() {
			fmt.Fprintf(w, "  %-18s %12s\n", c, v.StringFixed(2))
		}
	}
	fmt.Fprintf(w, "  %-18s %12s\n", "total", sol.Costs.Total.StringFixed(2))
	for _, v := range rec.Violations {
		fmt.Fprintf(w, "violation: %s\n", v)
	}
}

func logProgress(ctx context.Context, bus *eventbus.Bus[events.Event], log logger.Logger) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.RunStartedEvent:
				log.Infof("run %s: %d variables (%d integer), %d constraints", e.RunID, e.Variables, e.Integers, e.Constraints)
			case events.ProgressEvent:
				log.Debugw("incumbent", map[string]any{
					"run":       e.RunID,
					"nodes":     e.Progress.Nodes,
					"objective": e.Progress.Incumbent,
					"gap":       e.Progress.Gap,
				})
			}
		}
	}
}
