package stability

import (
	"math"
	"testing"
)

func TestBiCGStabDiagonalSystem(t *testing.T) {
	diag := []float64{3, 5, 7, 2}
	op := func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i := range x {
			out[i] = diag[i] * x[i]
		}
		return out
	}
	rhs := []float64{3, 10, 21, 4}
	y, _, converged := BiCGStab(op, rhs, 1e-10, 50)
	if !converged {
		t.Fatalf("expected convergence")
	}
	want := []float64{1, 2, 3, 2}
	for i := range y {
		if math.Abs(y[i]-want[i]) > 1e-6 {
			t.Fatalf("y[%d] = %g, want %g", i, y[i], want[i])
		}
	}
}

func TestGMRESDiagonalSystem(t *testing.T) {
	diag := []float64{4, 9, 1}
	op := func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i := range x {
			out[i] = diag[i] * x[i]
		}
		return out
	}
	rhs := []float64{4, 18, 3}
	y, _, converged := GMRES(op, rhs, 1e-10, 3, 20)
	if !converged {
		t.Fatalf("expected convergence")
	}
	want := []float64{1, 2, 3}
	for i := range y {
		if math.Abs(y[i]-want[i]) > 1e-6 {
			t.Fatalf("y[%d] = %g, want %g", i, y[i], want[i])
		}
	}
}
