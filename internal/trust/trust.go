// Package trust implements the sparse trust matrix and its two global
// trust propagation algorithms: EigenTrust-style iterative aggregation
// and OpenRank personalized PageRank.
package trust

import "sort"

// pairKey identifies a directed trust edge from one node UID to another.
type pairKey struct {
	from, to uint16
}

// Matrix is a sparse trust matrix: T(from, to) in [0,1].
//
// Domain-scoped — a separate Matrix is maintained per Reef Zone.
type Matrix struct {
	entries map[pairKey]float64
}

// New creates an empty trust matrix.
func New() *Matrix {
	return &Matrix{entries: make(map[pairKey]float64)}
}

// SetTrust sets the trust value from `from` to `to`, clamped to [0,1].
func (m *Matrix) SetTrust(from, to uint16, value float64) {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	m.entries[pairKey{from, to}] = value
}

// GetTrust returns the trust value from `from` to `to`, or 0 if unset.
func (m *Matrix) GetTrust(from, to uint16) float64 {
	return m.entries[pairKey{from, to}]
}

func (m *Matrix) uids() []uint16 {
	set := make(map[uint16]struct{})
	for k := range m.entries {
		set[k.from] = struct{}{}
		set[k.to] = struct{}{}
	}
	uids := make([]uint16, 0, len(set))
	for u := range set {
		uids = append(uids, u)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// ComputeGlobalTrust runs EigenTrust-style iterative aggregation: local
// trust is row-normalized into a Markov transition matrix and repeatedly
// combined with a uniform pre-trust vector until the L1 score delta falls
// below epsilon (or 100 iterations elapse).
func (m *Matrix) ComputeGlobalTrust() map[uint16]float64 {
	uids := m.uids()
	n := len(uids)
	if n == 0 {
		return map[uint16]float64{}
	}
	idx := make(map[uint16]int, n)
	for i, u := range uids {
		idx[u] = i
	}

	c := make([][]float64, n)
	for i := range c {
		c[i] = make([]float64, n)
	}
	for k, v := range m.entries {
		c[idx[k.from]][idx[k.to]] = v
	}
	for i := 0; i < n; i++ {
		var rowSum float64
		for _, v := range c[i] {
			rowSum += v
		}
		if rowSum > 0 {
			for j := range c[i] {
				c[i][j] /= rowSum
			}
		} else {
			for j := range c[i] {
				c[i][j] = 1.0 / float64(n)
			}
		}
	}

	uniform := 1.0 / float64(n)
	t := make([]float64, n)
	p := make([]float64, n)
	for i := range t {
		t[i] = uniform
		p[i] = uniform
	}

	const alpha = 0.1
	const maxIter = 100
	const epsilon = 1e-8

	for iter := 0; iter < maxIter; iter++ {
		tNew := make([]float64, n)
		for j := 0; j < n; j++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += c[i][j] * t[i]
			}
			tNew[j] = (1-alpha)*sum + alpha*p[j]
		}
		var delta float64
		for i := range t {
			d := t[i] - tNew[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		t = tNew
		if delta < epsilon {
			break
		}
	}

	result := make(map[uint16]float64, n)
	for i, u := range uids {
		result[u] = t[i]
	}
	return result
}

// OpenRankConfig configures the OpenRank personalized PageRank computation.
type OpenRankConfig struct {
	DampingFactor        float64
	MaxIterations        int
	ConvergenceThreshold float64
}

// DefaultOpenRankConfig matches the reference damping/iteration/threshold
// defaults used across the Reef.
func DefaultOpenRankConfig() OpenRankConfig {
	return OpenRankConfig{
		DampingFactor:        0.85,
		MaxIterations:        100,
		ConvergenceThreshold: 1e-6,
	}
}

// ComputeOpenRank computes context-aware global trust scores using
// personalized PageRank with damping over the trust matrix's edges.
func ComputeOpenRank(m *Matrix, cfg OpenRankConfig) map[uint16]float64 {
	uids := m.uids()
	n := len(uids)
	if n == 0 {
		return map[uint16]float64{}
	}
	idx := make(map[uint16]int, n)
	for i, u := range uids {
		idx[u] = i
	}

	// adj[i][j]: column-stochastic transition contribution from j to i.
	adj := make([][]float64, n)
	for i := range adj {
		adj[i] = make([]float64, n)
	}
	for k, v := range m.entries {
		i := idx[k.from]
		j := idx[k.to]
		adj[j][i] = v
	}

	colSums := make([]float64, n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			colSums[j] += adj[i][j]
		}
	}
	isDangling := make([]bool, n)
	for j := 0; j < n; j++ {
		if colSums[j] > 0 {
			for i := 0; i < n; i++ {
				adj[i][j] /= colSums[j]
			}
		} else {
			isDangling[j] = true
		}
	}

	uniform := 1.0 / float64(n)
	personalization := make([]float64, n)
	scores := make([]float64, n)
	for i := range scores {
		personalization[i] = uniform
		scores[i] = uniform
	}

	d := cfg.DampingFactor

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		newScores := make([]float64, n)

		var danglingSum float64
		for j := 0; j < n; j++ {
			if isDangling[j] {
				danglingSum += scores[j]
			}
		}

		for i := 0; i < n; i++ {
			var mTimesScores float64
			for j := 0; j < n; j++ {
				mTimesScores += adj[i][j] * scores[j]
			}
			mTimesScores += danglingSum * uniform
			newScores[i] = d*mTimesScores + (1-d)*personalization[i]
		}

		var delta float64
		for i := range scores {
			diff := scores[i] - newScores[i]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		scores = newScores
		if delta < cfg.ConvergenceThreshold {
			break
		}
	}

	result := make(map[uint16]float64, n)
	for i, u := range uids {
		result[u] = scores[i]
	}
	return result
}
