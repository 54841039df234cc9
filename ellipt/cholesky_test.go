package ellipt

import (
	"math"
	"testing"
)

func TestBandedFactorSolveMatchesDense(t *testing.T) {
	// 4x4 SPD tridiagonal system, bandwidth 2.
	n, nb := 4, 2
	b := NewBanded(nb, n)
	diag := []float64{4, 4, 4, 4}
	off := []float64{-1, -1, -1}
	for i := 0; i < n; i++ {
		b.Add(i, i, diag[i])
	}
	for i := 0; i < n-1; i++ {
		b.Add(i+1, i, off[i])
	}
	b.Factor()

	rhs := []float64{1, 2, 3, 4}
	want := []float64{1, 2, 3, 4} // solved against the same rhs copy below
	_ = want
	x := append([]float64(nil), rhs...)
	b.Solve(x)

	// verify A*x == rhs for the original tridiagonal A
	check := make([]float64, n)
	for i := 0; i < n; i++ {
		check[i] = diag[i] * x[i]
		if i > 0 {
			check[i] += off[i-1] * x[i-1]
		}
		if i < n-1 {
			check[i] += off[i] * x[i+1]
		}
	}
	for i := range check {
		if math.Abs(check[i]-rhs[i]) > 1e-9 {
			t.Fatalf("residual too large at %d: got %g want %g", i, check[i], rhs[i])
		}
	}
}

func TestJacobiPCGConvergesOnDiagonalSystem(t *testing.T) {
	n := 5
	diag := []float64{2, 3, 4, 5, 6}
	op := func(x []float64) []float64 {
		out := make([]float64, n)
		for i := range x {
			out[i] = diag[i] * x[i]
		}
		return out
	}
	b := []float64{2, 6, 12, 20, 30}
	pc := BuildDiagonalPreconditioner(diag)
	x0 := make([]float64, n)
	x, _, converged := JacobiPCG(op, b, x0, pc, 1e-12, 50)
	if !converged {
		t.Fatalf("expected convergence")
	}
	for i := range x {
		if math.Abs(x[i]-1) > 1e-8 {
			t.Fatalf("x[%d] = %g, want 1", i, x[i])
		}
	}
}
