// Package milp defines a small algebraic modelling layer for mixed-integer
// linear programs and the contract solvers implement.
package milp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidModel is returned for malformed variables or constraints.
var ErrInvalidModel = errors.New("invalid model")

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// String returns a human-readable representation of the kind.
func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Var references a variable of a Model.
type Var int

// Variable describes a decision variable.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// IsInteger reports whether the variable must take an integral value.
func (v Variable) IsInteger() bool { return v.Kind != Continuous }

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// String returns the operator of the sense.
func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Constraint is a linear row `Expr Sense RHS`. The expression constant is
// folded into RHS when the constraint is added.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Model is a minimisation MILP. It is built by a single goroutine and must
// not be mutated while a solver runs.
type Model struct {
	Name      string
	vars      []Variable
	cons      []Constraint
	objective Expr
	names     map[string]Var
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name, names: make(map[string]Var)}
}

// AddVar adds a variable. Lower bounds must be finite; use math.Inf(1) for an
// unbounded upper bound. Binary variables are clamped to [0,1].
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) (Var, error) {
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	if math.IsInf(lower, 0) || math.IsNaN(lower) || math.IsNaN(upper) {
		return -1, fmt.Errorf("%w: variable %s needs a finite lower bound", ErrInvalidModel, name)
	}
	if upper < lower {
		return -1, fmt.Errorf("%w: variable %s has upper %g below lower %g", ErrInvalidModel, name, upper, lower)
	}
	if _, dup := m.names[name]; dup && name != "" {
		return -1, fmt.Errorf("%w: duplicate variable %s", ErrInvalidModel, name)
	}
	v := Var(len(m.vars))
	m.vars = append(m.vars, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	if name != "" {
		m.names[name] = v
	}
	return v, nil
}

// NewContinuous adds a non-negative continuous variable.
func (m *Model) NewContinuous(name string) (Var, error) {
	return m.AddVar(name, Continuous, 0, math.Inf(1))
}

// NewBinary adds a 0/1 variable.
func (m *Model) NewBinary(name string) (Var, error) {
	return m.AddVar(name, Binary, 0, 1)
}

// NewInteger adds a non-negative integer variable bounded by upper.
func (m *Model) NewInteger(name string, upper float64) (Var, error) {
	return m.AddVar(name, Integer, 0, upper)
}

// AddConstraint adds `expr sense rhs`. Terms on the same variable are merged.
func (m *Model) AddConstraint(name string, expr Expr, sense Sense, rhs float64) error {
	for _, t := range expr.Terms {
		if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
			return fmt.Errorf("%w: constraint %s references unknown variable %d", ErrInvalidModel, name, t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("%w: constraint %s has non-finite coefficient", ErrInvalidModel, name)
		}
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return fmt.Errorf("%w: constraint %s has non-finite right-hand side", ErrInvalidModel, name)
	}
	e := expr.Simplify()
	rhs -= e.Constant
	e.Constant = 0
	m.cons = append(m.cons, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
	return nil
}

// SetObjective replaces the minimisation objective.
func (m *Model) SetObjective(e Expr) { m.objective = e.Simplify() }

// Objective returns the objective expression.
func (m *Model) Objective() Expr { return m.objective }

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// NumIntegers returns the number of integer and binary variables.
func (m *Model) NumIntegers() int {
	n := 0
	for _, v := range m.vars {
		if v.IsInteger() {
			n++
		}
	}
	return n
}

// Variable returns the definition of v.
func (m *Model) Variable(v Var) Variable { return m.vars[v] }

// Variables returns all variable definitions indexed by Var.
func (m *Model) Variables() []Variable { return m.vars }

// Constraints returns all constraints in insertion order.
func (m *Model) Constraints() []Constraint { return m.cons }

// Lookup finds a variable by name.
func (m *Model) Lookup(name string) (Var, bool) {
	v, ok := m.names[name]
	return v, ok
}

// Violation describes a constraint or bound not met by an assignment.
type Violation struct {
	Name   string
	Amount float64
}

func (v Violation) String() string { return fmt.Sprintf("%s violated by %g", v.Name, v.Amount) }

// Check evaluates an assignment against every bound, integrality requirement
// and constraint. Missing values count as violations of the variable bound.
// tol is relative to the magnitude of each row.
func (m *Model) Check(values map[Var]float64, tol float64) []Violation {
	var res []Violation
	for i, def := range m.vars {
		x, ok := values[Var(i)]
		if !ok {
			res = append(res, Violation{Name: def.Name + " unassigned", Amount: math.NaN()})
			continue
		}
		scale := math.Max(1, math.Abs(x))
		if x < def.Lower-tol*scale {
			res = append(res, Violation{Name: def.Name + " lower", Amount: def.Lower - x})
		}
		if x > def.Upper+tol*scale {
			res = append(res, Violation{Name: def.Name + " upper", Amount: x - def.Upper})
		}
		if def.IsInteger() && math.Abs(x-math.Round(x)) > tol*scale {
			res = append(res, Violation{Name: def.Name + " integrality", Amount: math.Abs(x - math.Round(x))})
		}
	}
	for _, c := range m.cons {
		lhs, scale := 0.0, math.Max(1, math.Abs(c.RHS))
		for _, t := range c.Expr.Terms {
			x := values[t.Var]
			lhs += t.Coef * x
			scale = math.Max(scale, math.Abs(t.Coef*x))
		}
		var viol float64
		switch c.Sense {
		case LessEq:
			viol = lhs - c.RHS
		case GreaterEq:
			viol = c.RHS - lhs
		case Equal:
			viol = math.Abs(lhs - c.RHS)
		}
		if viol > tol*scale {
			res = append(res, Violation{Name: c.Name, Amount: viol})
		}
	}
	return res
}
