// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assembly implements the masked, RCM-ordered global numbering
///§4.2: given a naive per-edge-node global vector and
// an essential-BC mask, it partitions essential globals into a contiguous
// suffix and (optionally) applies Reverse Cuthill-McKee to shrink the
// bandwidth of the unknown partition.
//
// No Cuthill-McKee/FNROOT implementation is reachable anywhere in the
// retrieval pack, so this is one of the few hand-rolled numerical kernels
// in the repository -- see DESIGN.md.
package assembly

import (
	"sort"

	"github.com/lab272/semtex-go/femlib"
)

// Level selects the RCM optimisation strategy.
type Level int

const (
	LevelNone Level = iota // 0: no renumbering
	LevelFNROOT             // 1: FNROOT seed + RCM
	LevelScan20              // 2: 20 candidate seeds, pick smallest bandwidth
	LevelExhaustive          // 3: try every node as seed
)

// Map is the masked, RCM-ordered global numbering for one (field-name,
// Fourier-mode) pair.
type Map struct {
	Mask    []bool // essential mask, length = naive vector length
	Btog    []int  // boundary-node index -> global id, sorted
	Emask   [][]bool // per-element external mask (element-local boundary-node essential flags)
	Nglobal int
	Nsolve  int // nglobal - #essential

	bandwidth int // last computed bandwidth, for diagnostics
}

// elemAdjacency is supplied by callers to describe, for each boundary
// global id, which other boundary global ids share an element with it:
// two global unknowns are adjacent iff they are both boundary nodes of
// the same element and neither is essential.
type elemAdjacency = map[int][]int

// New constructs an AssemblyMap from a naive per-edge-node numbering and a
// parallel essential-BC mask: sort by (mask, original gid)
// so essential globals occupy the suffix, then optionally RCM-renumber the
// unknown partition. elemBoundaryGlobals lists, per element, the ordered
// naive-vector global ids touching that element's boundary (used both to
// build Emask and the RCM adjacency graph).
func New(naive []int, mask []bool, elemBoundaryGlobals [][]int, level Level) *Map {
	const routine = "assembly.New"
	if len(naive) != len(mask) {
		femlib.Fatal(routine, "naive vector length %d != mask length %d", len(naive), len(mask))
	}

	// collapse naive ids (which may repeat across shared edges) to a
	// dense set of distinct global ids, carrying the mask through (a
	// global id is essential if any of its occurrences is essential).
	distinctMask := make(map[int]bool)
	for i, g := range naive {
		if mask[i] {
			distinctMask[g] = true
		} else if _, ok := distinctMask[g]; !ok {
			distinctMask[g] = false
		}
	}
	nglobalRaw := len(distinctMask)

	// two-key partition: unknowns first (by original gid), essentials last
	type entry struct{ gid int; essen bool }
	entries := make([]entry, 0, nglobalRaw)
	for g, e := range distinctMask {
		entries = append(entries, entry{g, e})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].essen != entries[j].essen {
			return !entries[i].essen // unknowns (false) before essentials (true)
		}
		return entries[i].gid < entries[j].gid
	})

	// oldGid -> new (sorted, pre-RCM) position
	remap := make(map[int]int, nglobalRaw)
	nsolve := 0
	for pos, e := range entries {
		remap[e.gid] = pos
		if !e.essen {
			nsolve++
		}
	}

	m := &Map{
		Mask:    mask,
		Nglobal: nglobalRaw,
		Nsolve:  nsolve,
	}

	// apply RCM to the unknown partition [0,nsolve) if requested
	if level != LevelNone && nsolve > 0 {
		adj := buildAdjacency(elemBoundaryGlobals, remap, nsolve)
		perm := reorder(adj, nsolve, level)
		// perm[newpos] = oldpos (within unknown partition); invert to get
		// oldpos -> newpos, then fold back into remap
		inv := make([]int, nsolve)
		for newpos, oldpos := range perm {
			inv[oldpos] = newpos
		}
		for gid, pos := range remap {
			if pos < nsolve {
				remap[gid] = inv[pos]
			}
		}
	}

	// finalise Btog: for each occurrence in the naive vector, its new
	// global id (sorted, possibly RCM-permuted within the unknown part)
	m.Btog = make([]int, len(naive))
	for i, g := range naive {
		m.Btog[i] = remap[g]
	}

	// build Emask per element from elemBoundaryGlobals
	if elemBoundaryGlobals != nil {
		m.Emask = make([][]bool, len(elemBoundaryGlobals))
		for ei, globs := range elemBoundaryGlobals {
			em := make([]bool, len(globs))
			for k, g := range globs {
				em[k] = remap[g] >= nsolve
			}
			m.Emask[ei] = em
		}
	}

	m.bandwidth = m.Bandwidth(elemBoundaryGlobals, remap)
	return m
}

// buildAdjacency constructs, for every unknown global id (new pre-RCM
// position 0..nsolve), the set of other unknown ids sharing an element.
func buildAdjacency(elemBoundaryGlobals [][]int, remap map[int]int, nsolve int) elemAdjacency {
	adj := make(elemAdjacency)
	for _, globs := range elemBoundaryGlobals {
		unknownsHere := make([]int, 0, len(globs))
		for _, g := range globs {
			if pos := remap[g]; pos < nsolve {
				unknownsHere = append(unknownsHere, pos)
			}
		}
		for _, a := range unknownsHere {
			for _, b := range unknownsHere {
				if a != b {
					adj[a] = appendUnique(adj[a], b)
				}
			}
		}
	}
	return adj
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// Bandwidth computes 1 + max_e (max_i bmap_e[i] - min_i bmap_e[i]) over
// unmasked positions
func (m *Map) Bandwidth(elemBoundaryGlobals [][]int, remap map[int]int) int {
	if elemBoundaryGlobals == nil {
		return 0
	}
	maxspan := 0
	for _, globs := range elemBoundaryGlobals {
		minP, maxP := -1, -1
		for _, g := range globs {
			pos := remap[g]
			if pos >= m.Nsolve {
				continue
			}
			if minP < 0 || pos < minP {
				minP = pos
			}
			if pos > maxP {
				maxP = pos
			}
		}
		if minP >= 0 {
			span := maxP - minP
			if span > maxspan {
				maxspan = span
			}
		}
	}
	return 1 + maxspan
}

// LastBandwidth returns the bandwidth computed during construction.
func (m *Map) LastBandwidth() int { return m.bandwidth }

// WillMatch reports whether two AssemblyMaps would be constructed
// identically: their mask vectors are element-wise equal
// (construction strategy is assumed identical for both maps).
func WillMatch(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
