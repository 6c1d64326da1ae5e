package solver

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/freshplan/core/milp"
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpNumerical
)

func (s lpStatus) String() string {
	switch s {
	case lpOptimal:
		return "optimal"
	case lpInfeasible:
		return "infeasible"
	case lpUnbounded:
		return "unbounded"
	default:
		return "numerical"
	}
}

type lpResult struct {
	status lpStatus
	x      []float64
	obj    float64
	// warn is set when gonum stopped early but still returned a feasible point.
	warn error
}

// lpSimplex points to the standard-form solver. It can be overridden in tests
// to simulate solver failures.
var lpSimplex = lp.Simplex

var errSimplexPanic = errors.New("simplex panicked")

const (
	phaseOneTol = 1e-10
	optTol      = 1e-9
	// supportTol separates basic phase one values from rounding noise.
	supportTol      = 1e-9
	independenceTol = 1e-8
	perturbation    = 1e-9
	// exactTol is the rounding accepted on basic values solved against the
	// unperturbed rows.
	exactTol = 1e-11
	bigMFactor      = 1e4
)

// runSimplex calls lpSimplex and turns its panics on malformed input into
// errors.
func runSimplex(c []float64, A mat.Matrix, b []float64, tol float64, basic []int) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			x, err = nil, fmt.Errorf("%w: %v", errSimplexPanic, r)
		}
	}()
	_, x, err = lpSimplex(c, A, b, tol, basic)
	return x, err
}

type row struct {
	idx   []int
	coef  []float64
	sense milp.Sense
	rhs   float64
}

// relaxation is the continuous relaxation of a model in column form. Bounds
// are supplied per solve so branch and bound can tighten them.
type relaxation struct {
	n        int
	cost     []float64
	objConst float64
	rows     []row
	occurs   []int
	tol      float64
}

func newRelaxation(m *milp.Model, tol float64) *relaxation {
	r := &relaxation{
		n:        m.NumVars(),
		cost:     make([]float64, m.NumVars()),
		objConst: m.Objective().Constant,
		occurs:   make([]int, m.NumVars()),
		tol:      tol,
	}
	for _, t := range m.Objective().Terms {
		r.cost[t.Var] += t.Coef
	}
	for _, c := range m.Constraints() {
		rw := row{sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Expr.Terms {
			if t.Coef == 0 {
				continue
			}
			rw.idx = append(rw.idx, int(t.Var))
			rw.coef = append(rw.coef, t.Coef)
			r.occurs[t.Var]++
		}
		r.rows = append(r.rows, rw)
	}
	return r
}

type stdRow struct {
	idx  []int
	coef []float64
	eq   bool
	b    float64
}

// solve minimises the relaxation within [lo, hi]. Variables are shifted to
// their lower bound, finite upper bounds become rows and the resulting
// standard form is solved in two phases: artificials are driven out from an
// identity basis, then the original costs are optimised from a basis rebuilt
// around the phase one support.
func (r *relaxation) solve(lo, hi []float64) lpResult {
	x := make([]float64, r.n)
	colOf := make([]int, r.n)
	var cols []int
	for j := 0; j < r.n; j++ {
		colOf[j] = -1
		if lo[j] > hi[j]+r.tol {
			return lpResult{status: lpInfeasible}
		}
		x[j] = lo[j]
		if hi[j]-lo[j] <= r.tol {
			continue
		}
		if r.occurs[j] == 0 {
			if r.cost[j] < 0 {
				if math.IsInf(hi[j], 1) {
					return lpResult{status: lpUnbounded}
				}
				x[j] = hi[j]
			}
			continue
		}
		colOf[j] = len(cols)
		cols = append(cols, j)
	}

	var rows []stdRow
	for _, rw := range r.rows {
		b := rw.rhs
		var sr stdRow
		for k, j := range rw.idx {
			b -= rw.coef[k] * x[j]
			if c := colOf[j]; c >= 0 {
				sr.idx = append(sr.idx, c)
				sr.coef = append(sr.coef, rw.coef[k])
			}
		}
		if len(sr.idx) == 0 {
			if !holds(rw.sense, b, r.tol*math.Max(1, math.Abs(rw.rhs))) {
				return lpResult{status: lpInfeasible}
			}
			continue
		}
		switch rw.sense {
		case milp.GreaterEq:
			floats.Scale(-1, sr.coef)
			b = -b
		case milp.Equal:
			sr.eq = true
		}
		sr.b = b
		rows = append(rows, sr)
	}
	for k, j := range cols {
		if !math.IsInf(hi[j], 1) {
			rows = append(rows, stdRow{idx: []int{k}, coef: []float64{1}, b: hi[j] - lo[j]})
		}
	}

	if len(rows) > 0 {
		costs := make([]float64, len(cols))
		for k, j := range cols {
			costs[k] = r.cost[j]
		}
		y, res := r.solveStandard(costs, rows)
		if res.status != lpOptimal {
			return res
		}
		for k, j := range cols {
			x[j] = math.Min(math.Max(lo[j]+y[k], lo[j]), hi[j])
		}
		res.x = x
		res.obj = r.objConst + floats.Dot(r.cost, x)
		return res
	}
	return lpResult{status: lpOptimal, x: x, obj: r.objConst + floats.Dot(r.cost, x)}
}

func holds(sense milp.Sense, b, tol float64) bool {
	switch sense {
	case milp.LessEq:
		return 0 <= b+tol
	case milp.GreaterEq:
		return 0 >= b-tol
	default:
		return math.Abs(b) <= tol
	}
}

// solveStandard solves min costs·y s.t. rows, y >= 0 and returns the values
// of the structural columns first in y.
func (r *relaxation) solveStandard(costs []float64, rows []stdRow) ([]float64, lpResult) {
	nc := len(costs)
	m := len(rows)
	slackOf := make([]int, m)
	artOf := make([]int, m)
	sign := make([]float64, m)
	N := nc
	for i, rw := range rows {
		slackOf[i] = -1
		if !rw.eq {
			slackOf[i] = N
			N++
		}
	}
	nslack := N - nc
	nart := 0
	for i, rw := range rows {
		artOf[i] = -1
		sign[i] = 1
		if rw.b < 0 {
			sign[i] = -1
		}
		if rw.eq || sign[i] < 0 {
			artOf[i] = N
			N++
			nart++
		}
	}

	A := mat.NewDense(m, N, nil)
	b := make([]float64, m)
	basis := make([]int, m)
	for i, rw := range rows {
		for k, c := range rw.idx {
			A.Set(i, c, A.At(i, c)+sign[i]*rw.coef[k])
		}
		if slackOf[i] >= 0 {
			A.Set(i, slackOf[i], sign[i])
			basis[i] = slackOf[i]
		}
		if artOf[i] >= 0 {
			A.Set(i, artOf[i], 1)
			basis[i] = artOf[i]
		}
		b[i] = sign[i] * rw.b
	}

	if nart == 0 {
		c := make([]float64, N)
		copy(c, costs)
		y, err := runSimplex(c, A, b, optTol, basis)
		return y, classify(y, err)
	}

	c1 := make([]float64, N)
	for i := nc + nslack; i < N; i++ {
		c1[i] = 1
	}
	y1, err := runSimplex(c1, A, b, phaseOneTol, basis)
	if y1 == nil {
		return nil, lpResult{status: lpNumerical, warn: err}
	}
	infeas := floats.Sum(y1[nc+nslack:])
	if infeas > r.tol*math.Max(1, floats.Norm(b, math.Inf(1))) {
		if err != nil {
			return nil, lpResult{status: lpNumerical, warn: err}
		}
		return nil, lpResult{status: lpInfeasible}
	}

	basis, ok := completeBasis(A, phaseTwoCandidates(y1, nc, nslack, slackOf, artOf))
	if !ok {
		return nil, lpResult{status: lpNumerical, warn: errors.New("basis completion failed")}
	}

	// Phase two keeps the structural and slack columns plus the artificials
	// that stayed basic. Those sit on redundant rows and carry a large cost.
	keep := make([]int, 0, nc+nslack+m)
	for j := 0; j < nc+nslack; j++ {
		keep = append(keep, j)
	}
	for _, j := range basis {
		if j >= nc+nslack {
			keep = append(keep, j)
		}
	}
	pos := make(map[int]int, len(keep))
	for k, j := range keep {
		pos[j] = k
	}
	bigM := bigMFactor * (1 + floats.Norm(costs, math.Inf(1)))
	A2 := mat.NewDense(m, len(keep), nil)
	c2 := make([]float64, len(keep))
	for k, j := range keep {
		for i := 0; i < m; i++ {
			A2.Set(i, k, A.At(i, j))
		}
		switch {
		case j < nc:
			c2[k] = costs[j]
		case j >= nc+nslack:
			c2[k] = bigM
		}
	}
	basis2 := make([]int, m)
	xb := make([]float64, m)
	pert := perturbation * math.Max(1, floats.Norm(b, math.Inf(1)))
	for i, j := range basis {
		basis2[i] = pos[j]
		if j < nc+nslack {
			xb[i] = math.Max(y1[j], 0)
		}
		xb[i] += pert
	}
	// start from an interior point of the basis so gonum accepts it despite
	// rounding in the phase one values
	b2 := make([]float64, m)
	for i := 0; i < m; i++ {
		for k, j := range basis2 {
			b2[i] += A2.At(i, j) * xb[k]
		}
	}
	y2, err := runSimplex(c2, A2, b2, optTol, basis2)
	res := classify(y2, err)
	if res.status != lpOptimal {
		return y2, res
	}
	exact, ok := exactBasic(A2, b, y2, nc)
	if !ok {
		res.warn = errors.Join(res.warn, errors.New("basis not feasible for unperturbed rows"))
		return y2, res
	}
	return exact, res
}

// exactBasic rebuilds the optimal basis from the support of y and solves it
// against the unperturbed b. Columns from nc on are slacks and artificials,
// preferred over structural columns when completing the basis.
func exactBasic(A *mat.Dense, b, y []float64, nc int) ([]float64, bool) {
	m, n := A.Dims()
	cand := make([]int, 0, n)
	for j, v := range y {
		if v > 0 {
			cand = append(cand, j)
		}
	}
	sort.SliceStable(cand, func(a, c int) bool { return y[cand[a]] > y[cand[c]] })
	for j := nc; j < n; j++ {
		if y[j] <= 0 {
			cand = append(cand, j)
		}
	}
	for j := 0; j < nc; j++ {
		if y[j] <= 0 {
			cand = append(cand, j)
		}
	}
	basis, ok := completeBasis(A, cand)
	if !ok {
		return nil, false
	}
	ab := mat.NewDense(m, m, nil)
	for k, j := range basis {
		for i := 0; i < m; i++ {
			ab.Set(i, k, A.At(i, j))
		}
	}
	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, b)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, false
		}
	}
	tol := exactTol * math.Max(1, floats.Norm(b, math.Inf(1)))
	x := make([]float64, n)
	for k, j := range basis {
		v := xb.AtVec(k)
		if v < -tol {
			return nil, false
		}
		x[j] = math.Max(v, 0)
	}
	return x, true
}

func classify(y []float64, err error) lpResult {
	switch {
	case errors.Is(err, lp.ErrUnbounded):
		return lpResult{status: lpUnbounded}
	case errors.Is(err, lp.ErrInfeasible):
		return lpResult{status: lpInfeasible}
	case y == nil:
		return lpResult{status: lpNumerical, warn: err}
	default:
		return lpResult{status: lpOptimal, warn: err}
	}
}

// phaseTwoCandidates orders columns for the phase two basis: the phase one
// support by decreasing value, then every slack, then every artificial.
func phaseTwoCandidates(y []float64, nc, nslack int, slackOf, artOf []int) []int {
	var support []int
	for j := 0; j < nc+nslack; j++ {
		if y[j] > supportTol {
			support = append(support, j)
		}
	}
	sort.SliceStable(support, func(a, b int) bool { return y[support[a]] > y[support[b]] })
	for _, j := range slackOf {
		if j >= 0 {
			support = append(support, j)
		}
	}
	for _, j := range artOf {
		if j >= 0 {
			support = append(support, j)
		}
	}
	return support
}

// completeBasis picks len(rows) linearly independent columns of A, taking the
// candidates in order. Independence is tested with re-orthogonalised
// Gram-Schmidt.
func completeBasis(A *mat.Dense, candidates []int) ([]int, bool) {
	m, _ := A.Dims()
	q := make([][]float64, 0, m)
	basis := make([]int, 0, m)
	seen := make(map[int]bool, len(candidates))
	for _, j := range candidates {
		if len(basis) == m {
			break
		}
		if seen[j] {
			continue
		}
		seen[j] = true
		v := mat.Col(nil, j, A)
		norm0 := floats.Norm(v, 2)
		if norm0 == 0 {
			continue
		}
		for pass := 0; pass < 2; pass++ {
			for _, u := range q {
				floats.AddScaled(v, -floats.Dot(u, v), u)
			}
		}
		nv := floats.Norm(v, 2)
		if nv <= independenceTol*norm0 {
			continue
		}
		floats.Scale(1/nv, v)
		q = append(q, v)
		basis = append(basis, j)
	}
	return basis, len(basis) == m
}
