package scenarios

import (
	"fmt"
	"strings"

	"github.com/kilianp07/freshplan/core/planning"
)

// Check compares a solve result with the scenario expectations and returns
// one message per unmet expectation.
func (e Expected) Check(res *planning.Result) []string {
	var failures []string
	if res == nil {
		return []string{"no result"}
	}
	if e.Status != "" && !strings.EqualFold(e.Status, res.Termination.String()) {
		failures = append(failures, fmt.Sprintf("status %s, want %s", res.Termination, e.Status))
	}
	if e.MaxShortage == nil && e.MinFillRate == 0 {
		return failures
	}
	if res.Solution == nil {
		return append(failures, "no solution to check plan expectations against")
	}
	totals := res.Solution.Totals
	if e.MaxShortage != nil && totals.Shortage > *e.MaxShortage+1e-6 {
		failures = append(failures, fmt.Sprintf("shortage %.2f exceeds %.2f", totals.Shortage, *e.MaxShortage))
	}
	if e.MinFillRate > 0 && totals.FillRate() < e.MinFillRate-1e-9 {
		failures = append(failures, fmt.Sprintf("fill rate %.4f below %.4f", totals.FillRate(), e.MinFillRate))
	}
	return failures
}
