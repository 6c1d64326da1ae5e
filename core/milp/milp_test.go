package milp

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freshplan/core/factory"
)

func TestAddVarValidation(t *testing.T) {
	m := NewModel("t")
	_, err := m.AddVar("x", Continuous, math.Inf(-1), 1)
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = m.AddVar("x", Continuous, 2, 1)
	assert.ErrorIs(t, err, ErrInvalidModel)

	b, err := m.AddVar("b", Binary, -3, 7)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Variable(b).Lower)
	assert.Equal(t, 1.0, m.Variable(b).Upper)

	_, err = m.NewBinary("b")
	assert.ErrorIs(t, err, ErrInvalidModel)
	v, ok := m.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, b, v)
}

func TestConstraintFoldsConstant(t *testing.T) {
	m := NewModel("t")
	x, _ := m.NewContinuous("x")
	y, _ := m.NewContinuous("y")
	var e Expr
	e.Add(x, 1).Add(y, 2).Add(x, 3).AddConstant(5)
	require.NoError(t, m.AddConstraint("c", e, LessEq, 10))

	c := m.Constraints()[0]
	assert.Equal(t, 5.0, c.RHS)
	assert.Equal(t, []Term{{Var: x, Coef: 4}, {Var: y, Coef: 2}}, c.Expr.Terms)

	assert.Error(t, m.AddConstraint("bad", NewExpr(Term{Var: 7, Coef: 1}), Equal, 0))
}

func TestCheck(t *testing.T) {
	m := NewModel("t")
	x, _ := m.NewContinuous("x")
	n, _ := m.NewInteger("n", 5)
	var e Expr
	e.Add(x, 1).Add(n, 1)
	require.NoError(t, m.AddConstraint("sum", e, Equal, 4))

	assert.Empty(t, m.Check(map[Var]float64{x: 1, n: 3}, 1e-9))

	viol := m.Check(map[Var]float64{x: 1.5, n: 2.5}, 1e-9)
	require.Len(t, viol, 1)
	assert.Equal(t, "n integrality", viol[0].Name)

	viol = m.Check(map[Var]float64{x: 1}, 1e-9)
	assert.Len(t, viol, 2)
}

func TestExprEval(t *testing.T) {
	var e Expr
	e.Add(0, 2).Add(1, -1).AddConstant(3)
	assert.Equal(t, 3+2*4.0-1, e.Eval(map[Var]float64{0: 4, 1: 1}))
	// missing values contribute nothing
	assert.Equal(t, 11.0, e.Eval(map[Var]float64{0: 4}))
}

type stubSolver struct{}

func (stubSolver) Name() string { return "stub" }

func (stubSolver) Solve(context.Context, *Model, Options) (*Result, error) {
	return &Result{Status: Infeasible}, nil
}

func TestRegistry(t *testing.T) {
	require.NoError(t, Register("stub-test", func(map[string]any) (Solver, error) { return stubSolver{}, nil }))
	s, err := NewSolver(factory.ModuleConfig{Type: "stub-test"})
	require.NoError(t, err)
	assert.Equal(t, "stub", s.Name())
	assert.Contains(t, Solvers(), "stub-test")

	_, err = NewSolver(factory.ModuleConfig{Type: "cplex"})
	assert.ErrorIs(t, err, ErrUnknownSolver)
}

func TestStatus(t *testing.T) {
	assert.True(t, Feasible.HasSolution())
	assert.False(t, LimitNoSolution.HasSolution())
	assert.Equal(t, "numerical-failure", NumericalFailure.String())
	var r *Result
	_, ok := r.Value(0)
	assert.False(t, ok)
}
