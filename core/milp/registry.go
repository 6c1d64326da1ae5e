package milp

import (
	"errors"
	"fmt"

	"github.com/kilianp07/freshplan/core/factory"
)

// ErrUnknownSolver is returned when no solver is registered under a name.
var ErrUnknownSolver = errors.New("unknown solver")

var registry = factory.NewRegistry[Solver]()

// Register makes a solver available under name and its aliases.
func Register(name string, f factory.Factory[Solver], aliases ...string) error {
	return registry.Register(name, f, aliases...)
}

// NewSolver instantiates a registered solver from configuration.
func NewSolver(cfg factory.ModuleConfig) (Solver, error) {
	s, err := registry.Create(cfg)
	if errors.Is(err, factory.ErrUnknownModule) {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownSolver, cfg.Type, registry.Names())
	}
	return s, err
}

// Solvers lists the registered solver names.
func Solvers() []string { return registry.Names() }
