package integrate

import (
	"math"
	"testing"
)

func TestNewStiffCoeffsOrders(t *testing.T) {
	for _, j := range []int{1, 2, 3} {
		c := NewStiffCoeffs(j)
		if len(c.Beta) != j {
			t.Fatalf("order %d: len(Beta) = %d, want %d", j, len(c.Beta), j)
		}
		if len(c.Alpha) != j+1 {
			t.Fatalf("order %d: len(Alpha) = %d, want %d", j, len(c.Alpha), j+1)
		}
		var betaSum float64
		for _, b := range c.Beta {
			betaSum += b
		}
		if math.Abs(betaSum-1) > 1e-12 {
			t.Fatalf("order %d: extrapolation coefficients must sum to 1, got %g", j, betaSum)
		}
		var alphaSum float64
		for _, a := range c.Alpha {
			alphaSum += a
		}
		if math.Abs(alphaSum) > 1e-12 {
			t.Fatalf("order %d: backward-difference coefficients must sum to 0, got %g", j, alphaSum)
		}
	}
}

func TestStiffCoeffsLambda2(t *testing.T) {
	c := NewStiffCoeffs(1)
	lambda2 := c.Lambda2(0.5, 0.1)
	want := 1.0 / (0.5 * 0.1 / 1.0)
	if math.Abs(lambda2-want) > 1e-12 {
		t.Fatalf("Lambda2 = %g, want %g", lambda2, want)
	}
}
