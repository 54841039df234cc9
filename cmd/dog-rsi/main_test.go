package main

import (
	"reflect"
	"testing"
)

func TestPerturbStateFlattenRoundTrip(t *testing.T) {
	ps := &perturbState{names: []byte{'u', 'v'}, sizes: []int{3, 2}, length: 5}
	byName := map[byte][]float64{
		'u': {1, 2, 3},
		'v': {4, 5},
	}
	flat := ps.flatten(byName)
	want := []float64{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("flatten = %v, want %v", flat, want)
	}
	back := ps.unflatten(flat)
	for _, nm := range ps.names {
		if !reflect.DeepEqual(back[nm], byName[nm]) {
			t.Fatalf("unflatten[%c] = %v, want %v", nm, back[nm], byName[nm])
		}
	}
}

func TestFlattenInOrderPreservesFieldOrder(t *testing.T) {
	ps := &perturbState{names: []byte{'v', 'u'}, sizes: []int{1, 1}, length: 2}
	byName := map[byte][]float64{'u': {10}, 'v': {20}}
	out := flattenInOrder(ps, byName)
	if len(out) != 2 || out[0][0] != 20 || out[1][0] != 10 {
		t.Fatalf("flattenInOrder = %v, want order [v,u] = [20,10]", out)
	}
}
