package milp

import "sort"

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// NewExpr starts an expression from the given terms.
func NewExpr(terms ...Term) Expr {
	return Expr{Terms: append([]Term(nil), terms...)}
}

// Add appends coef·v and returns the expression for chaining.
func (e *Expr) Add(v Var, coef float64) *Expr {
	if coef != 0 {
		e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	}
	return e
}

// AddConstant adds c to the constant part.
func (e *Expr) AddConstant(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr adds scale·o.
func (e *Expr) AddExpr(o Expr, scale float64) *Expr {
	for _, t := range o.Terms {
		e.Add(t.Var, t.Coef*scale)
	}
	e.Constant += o.Constant * scale
	return e
}

// Len returns the number of terms.
func (e Expr) Len() int { return len(e.Terms) }

// Simplify merges duplicate variables, drops zero coefficients and sorts the
// terms by variable.
func (e Expr) Simplify() Expr {
	acc := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	out := Expr{Terms: make([]Term, 0, len(acc)), Constant: e.Constant}
	for v, c := range acc {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Eval computes the value of the expression for an assignment. Variables
// without a value contribute nothing.
func (e Expr) Eval(values map[Var]float64) float64 {
	sum := e.Constant
	for _, t := range e.Terms {
		sum += t.Coef * values[t.Var]
	}
	return sum
}
