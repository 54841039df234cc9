package xform

import (
	"math"
	"testing"

	"github.com/lab272/semtex-go/geom"
)

func TestRoundTripFFT(t *testing.T) {
	g := geom.NewGeometry(5, 1, 8, 1, geom.Cartesian, geom.Sym2D3C, false)
	data := make([]float64, g.NzLocal*g.PlaneSize)
	orig := make([]float64, len(data))
	for k := 0; k < g.NzLocal; k++ {
		for i := 0; i < g.Nplane; i++ {
			v := math.Sin(float64(k)*0.7 + float64(i)*0.13)
			data[k*g.PlaneSize+i] = v
			orig[k*g.PlaneSize+i] = v
		}
	}
	Transform(g, data, +1)
	Transform(g, data, -1)
	var maxErr float64
	for i := range data {
		if d := math.Abs(data[i] - orig[i]); d > maxErr {
			maxErr = d
		}
	}
	if maxErr > 1e-9 {
		t.Fatalf("round-trip FFT error too large: %g", maxErr)
	}
}

func TestNoOpFor2D(t *testing.T) {
	g := geom.NewGeometry(5, 1, 1, 1, geom.Cartesian, geom.Sym2D2C, false)
	data := []float64{1, 2, 3, 4}
	cp := append([]float64(nil), data...)
	Transform(g, data, +1)
	for i := range data {
		if data[i] != cp[i] {
			t.Fatalf("n_z=1 transform must be identity")
		}
	}
}
