package gll

import (
	"math"
	"testing"
)

func TestGLLNodesSymmetric(t *testing.T) {
	c := NewCache()
	ops := c.Get(GLL, 7, 0, 0)
	if ops.Z[0] != -1 || ops.Z[6] != 1 {
		t.Fatalf("GLL endpoints wrong: %v", ops.Z)
	}
	for i := 0; i < 4; i++ {
		if math.Abs(ops.Z[i]+ops.Z[6-i]) > 1e-12 {
			t.Fatalf("GLL nodes not symmetric: %v", ops.Z)
		}
	}
	sum := 0.0
	for _, w := range ops.W {
		sum += w
	}
	if math.Abs(sum-2) > 1e-10 {
		t.Fatalf("GLL weights must sum to 2, got %v", sum)
	}
}

func TestDerivativeMatrixExactOnLinear(t *testing.T) {
	c := NewCache()
	ops := c.Get(GLL, 5, 0, 0)
	// f(z) = z => f'(z) = 1 everywhere
	f := make([]float64, ops.Np)
	copy(f, ops.Z)
	for i := 0; i < ops.Np; i++ {
		var df float64
		for j := 0; j < ops.Np; j++ {
			df += ops.D[i][j] * f[j]
		}
		if math.Abs(df-1) > 1e-9 {
			t.Fatalf("derivative of identity wrong at node %d: %v", i, df)
		}
	}
}

func TestCacheReusesOps(t *testing.T) {
	c := NewCache()
	a := c.Get(GLL, 6, 0, 0)
	b := c.Get(GLL, 6, 0, 0)
	if a != b {
		t.Fatalf("expected cache to return identical pointer on second Get")
	}
}

func TestInterpIdentity(t *testing.T) {
	c := NewCache()
	key := Key{GLL, 5, 0, 0}
	it := c.GetInterp(key, key)
	v := []float64{1, 2, 3, 4, 5}
	out := it.Eval(v)
	for i := range v {
		if math.Abs(out[i]-v[i]) > 1e-9 {
			t.Fatalf("identity interpolation mismatch at %d: %v vs %v", i, out[i], v[i])
		}
	}
}
