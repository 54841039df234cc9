// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assembly

import "sort"

// reorder returns a permutation perm such that perm[newpos] = oldpos,
// implementing the four optimisation levels
func reorder(adj elemAdjacency, n int, level Level) []int {
	switch level {
	case LevelFNROOT:
		root := fnroot(adj, n, 0)
		return cuthillMcKee(adj, n, root)
	case LevelScan20:
		return bestOfSeeds(adj, n, candidateSeeds(n, 20))
	case LevelExhaustive:
		seeds := make([]int, n)
		for i := range seeds {
			seeds[i] = i
		}
		return bestOfSeeds(adj, n, seeds)
	default:
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		return perm
	}
}

// candidateSeeds picks up to k seeds uniformly spread over [0,n).
func candidateSeeds(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	seeds := make([]int, 0, k)
	step := float64(n) / float64(k)
	for i := 0; i < k; i++ {
		s := int(float64(i) * step)
		if s >= n {
			s = n - 1
		}
		seeds = append(seeds, s)
	}
	return seeds
}

// bestOfSeeds runs RCM from every seed and keeps the permutation with the
// smallest resulting bandwidth.
func bestOfSeeds(adj elemAdjacency, n int, seeds []int) []int {
	var best []int
	bestBW := -1
	for _, s := range seeds {
		perm := cuthillMcKee(adj, n, s)
		bw := bandwidthOf(adj, perm)
		if bestBW < 0 || bw < bestBW {
			bestBW = bw
			best = perm
		}
	}
	if best == nil {
		best = make([]int, n)
		for i := range best {
			best[i] = i
		}
	}
	return best
}

// bandwidthOf computes the graph bandwidth of adj under the ordering perm
// (perm[newpos] = oldpos).
func bandwidthOf(adj elemAdjacency, perm []int) int {
	newpos := make(map[int]int, len(perm))
	for np, op := range perm {
		newpos[op] = np
	}
	bw := 0
	for op, nbrs := range adj {
		for _, nb := range nbrs {
			d := newpos[op] - newpos[nb]
			if d < 0 {
				d = -d
			}
			if d > bw {
				bw = d
			}
		}
	}
	return bw
}

// fnroot finds a pseudo-peripheral node by repeatedly taking the last
// (deepest, smallest-degree) node of a BFS level structure rooted at the
// current candidate, starting from the given seed.
func fnroot(adj elemAdjacency, n, seed int) int {
	root := seed
	for iter := 0; iter < n; iter++ {
		levels := bfsLevels(adj, n, root)
		deepest := maxLevel(levels)
		candidates := nodesAtLevel(levels, deepest)
		next := lowestDegree(adj, candidates)
		if next == root {
			break
		}
		if bfsDepth(adj, n, next) <= bfsDepth(adj, n, root) {
			break
		}
		root = next
	}
	return root
}

func bfsLevels(adj elemAdjacency, n, root int) []int {
	levels := make([]int, n)
	for i := range levels {
		levels[i] = -1
	}
	levels[root] = 0
	queue := []int{root}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adj[u] {
			if levels[v] < 0 {
				levels[v] = levels[u] + 1
				queue = append(queue, v)
			}
		}
	}
	return levels
}

func bfsDepth(adj elemAdjacency, n, root int) int {
	levels := bfsLevels(adj, n, root)
	return maxLevel(levels)
}

func maxLevel(levels []int) int {
	m := 0
	for _, l := range levels {
		if l > m {
			m = l
		}
	}
	return m
}

func nodesAtLevel(levels []int, target int) []int {
	var nodes []int
	for i, l := range levels {
		if l == target {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

func lowestDegree(adj elemAdjacency, candidates []int) int {
	best := candidates[0]
	bestDeg := len(adj[best])
	for _, c := range candidates[1:] {
		if d := len(adj[c]); d < bestDeg {
			best, bestDeg = c, d
		}
	}
	return best
}

// cuthillMcKee runs the standard Cuthill-McKee level-structure BFS from
// root (ordering each level's neighbours by ascending degree), then
// reverses the result to produce the RCM ordering. Returns perm with
// perm[newpos] = oldpos. Disconnected components are appended in turn,
// each started from its lowest-id unvisited node.
func cuthillMcKee(adj elemAdjacency, n, root int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	visitFrom := func(start int) {
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			order = append(order, u)
			nbrs := append([]int(nil), adj[u]...)
			sort.Slice(nbrs, func(i, j int) bool { return len(adj[nbrs[i]]) < len(adj[nbrs[j]]) })
			for _, v := range nbrs {
				if !visited[v] {
					visited[v] = true
					queue = append(queue, v)
				}
			}
		}
	}

	visitFrom(root)
	for i := 0; i < n; i++ {
		if !visited[i] {
			visitFrom(i)
		}
	}

	// reverse
	perm := make([]int, n)
	for i, v := range order {
		perm[n-1-i] = v
	}
	return perm
}
