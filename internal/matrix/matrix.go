// Package matrix implements the dense weight and bond matrices shared by
// the scoring pipeline and the consensus engine. Intentionally a tiny,
// dependency-free 2D-float abstraction: no linear-algebra library is
// pulled in for what is just row operations over [][]float64.
package matrix

// WeightMatrix is a dense weights[validator][coral] = weight matrix.
type WeightMatrix struct {
	Weights [][]float64
}

// NewWeightMatrix creates a zero-initialized weight matrix.
func NewWeightMatrix(validators, corals int) *WeightMatrix {
	w := make([][]float64, validators)
	for i := range w {
		w[i] = make([]float64, corals)
	}
	return &WeightMatrix{Weights: w}
}

func (m *WeightMatrix) Set(v, c int, w float64) { m.Weights[v][c] = w }

func (m *WeightMatrix) Get(v, c int) float64 { return m.Weights[v][c] }

// Normalize divides every row by its row-sum; a zero-sum row stays zero.
func (m *WeightMatrix) Normalize() {
	for _, row := range m.Weights {
		var sum float64
		for _, w := range row {
			sum += w
		}
		if sum > 0 {
			for i := range row {
				row[i] /= sum
			}
		}
	}
}

// BondMatrix is a dense bonds[validator][coral] = bond matrix, EMA-smoothed
// over epochs and penalized by disagreement with consensus.
type BondMatrix struct {
	Bonds [][]float64
}

// NewBondMatrix creates a zero-initialized bond matrix.
func NewBondMatrix(validators, corals int) *BondMatrix {
	b := make([][]float64, validators)
	for i := range b {
		b[i] = make([]float64, corals)
	}
	return &BondMatrix{Bonds: b}
}

// UpdateEMA applies, for every (i,j):
//
//	ema     = alpha*W[i][j] + (1-alpha)*B_prev[i][j]
//	penalty = bondPenalty*|W[i][j] - consensusWeights[j]|
//	B[i][j] = max(0, ema - penalty)
func (b *BondMatrix) UpdateEMA(weights *WeightMatrix, alpha, bondPenalty float64, consensusWeights []float64) {
	numValidators := len(b.Bonds)
	for i := 0; i < numValidators; i++ {
		numCorals := len(b.Bonds[i])
		for j := 0; j < numCorals; j++ {
			wij := weights.Weights[i][j]
			bPrev := b.Bonds[i][j]
			var consensusJ float64
			if j < len(consensusWeights) {
				consensusJ = consensusWeights[j]
			}
			ema := alpha*wij + (1-alpha)*bPrev
			penalty := bondPenalty * absF(wij-consensusJ)
			v := ema - penalty
			if v < 0 {
				v = 0
			}
			b.Bonds[i][j] = v
		}
	}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
