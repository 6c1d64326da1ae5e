// Package plugins registers the built-in solvers and metrics sinks. Import it
// for its side effects.
package plugins

import (
	"github.com/kilianp07/freshplan/core/milp"
	"github.com/kilianp07/freshplan/infra/logger"
	_ "github.com/kilianp07/freshplan/infra/metrics"
	"github.com/kilianp07/freshplan/infra/solver"
)

func init() {
	_ = milp.Register("simplex", solver.Factory(logger.New("solver")), "gonum")
}
