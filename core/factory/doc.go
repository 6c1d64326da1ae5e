// Package factory provides a small generic registry used to instantiate
// pluggable modules, such as MIP solvers, from configuration. Modules are
// defined by a type string and a map of raw settings. Factories decode the
// settings into typed structs and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[milp.Solver]()
//	reg.Register("simplex", func(conf map[string]any) (milp.Solver, error) {
//	    var c struct{ Tolerance float64 `json:"tolerance"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewSimplex(c.Tolerance), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "simplex"})
package factory
