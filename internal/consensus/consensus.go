// Package consensus implements Yuma-Semantic Consensus: the stake-weighted
// median scoring, bond EMA, and incentive/dividend computation that runs at
// every epoch boundary over the validators' weight matrix.
package consensus

import (
	"sort"

	"github.com/google/uuid"
)

// Result is the output of one epoch's consensus run.
type Result struct {
	// ConsensusWeights holds the stake-weighted median score for each coral.
	ConsensusWeights []float64
	// Incentives holds each coral's share of total incentive.
	Incentives []float64
	// Dividends holds each validator's share of total dividend.
	Dividends []float64
	// Bonds is the updated bond matrix after EMA + penalty.
	Bonds [][]float64
	// HardenedPolypIDs lists polyps that passed hardening determination.
	HardenedPolypIDs []uuid.UUID
}

type weightStakePair struct {
	weight float64
	stake  float64
}

// Run executes the seven-step Yuma-Semantic Consensus algorithm for one
// epoch: stake normalization, weight row-normalization, stake-weighted
// median per coral, validator agreement, bond EMA update with penalty,
// incentive computation, and dividend computation.
//
//   - stakes: stake per validator (Tide Node).
//   - weights: [validators][corals], W[i][j] = validator i's score for coral j.
//   - prevBonds: previous epoch's bond matrix.
//   - kappa: cumulative-stake fraction at which the median walk stops.
//   - bondPenalty: bond decay rate for disagreeing validators.
//   - alpha: EMA smoothing factor.
func Run(stakes []uint64, weights, prevBonds [][]float64, kappa, bondPenalty, alpha float64) Result {
	nValidators := len(stakes)
	if nValidators == 0 {
		return Result{}
	}

	nCorals := 0
	if len(weights) > 0 {
		nCorals = len(weights[0])
	}

	// Step 1: normalize stakes to sum to 1.0.
	var totalStake float64
	for _, s := range stakes {
		totalStake += float64(s)
	}
	normStakes := make([]float64, nValidators)
	if totalStake > 0 {
		for i, s := range stakes {
			normStakes[i] = float64(s) / totalStake
		}
	}

	// Step 2: row-normalize the weight matrix.
	normWeights := make([][]float64, nValidators)
	for i, row := range weights {
		var sum float64
		for _, w := range row {
			sum += w
		}
		normWeights[i] = make([]float64, len(row))
		if sum > 0 {
			for j, w := range row {
				normWeights[i][j] = w / sum
			}
		} else {
			copy(normWeights[i], row)
		}
	}

	// Step 3: stake-weighted median per coral.
	consensusWeights := make([]float64, nCorals)
	for j := 0; j < nCorals; j++ {
		pairs := make([]weightStakePair, nValidators)
		for i := 0; i < nValidators; i++ {
			pairs[i] = weightStakePair{weight: normWeights[i][j], stake: normStakes[i]}
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].weight < pairs[b].weight })

		var cumulative, medianVal float64
		for _, p := range pairs {
			cumulative += p.stake
			medianVal = p.weight
			if cumulative >= kappa {
				break
			}
		}
		consensusWeights[j] = medianVal
	}

	// Step 4: validator agreement (1 - mean absolute deviation from consensus).
	agreement := make([]float64, nValidators)
	for i := 0; i < nValidators; i++ {
		if nCorals == 0 {
			agreement[i] = 1.0
			continue
		}
		var meanDeviation float64
		for j := 0; j < nCorals; j++ {
			d := normWeights[i][j] - consensusWeights[j]
			if d < 0 {
				d = -d
			}
			meanDeviation += d
		}
		meanDeviation /= float64(nCorals)
		agreement[i] = 1.0 - meanDeviation
	}

	// Step 5: bond EMA update with penalty.
	bonds := make([][]float64, nValidators)
	for i := 0; i < nValidators; i++ {
		bonds[i] = make([]float64, nCorals)
		for j := 0; j < nCorals; j++ {
			var prev float64
			if i < len(prevBonds) && j < len(prevBonds[i]) {
				prev = prevBonds[i][j]
			}
			wij := normWeights[i][j]
			ema := alpha*wij + (1-alpha)*prev
			d := wij - consensusWeights[j]
			if d < 0 {
				d = -d
			}
			penalty := bondPenalty * d
			v := ema - penalty
			if v < 0 {
				v = 0
			}
			bonds[i][j] = v
		}
	}

	// Step 6: incentives = consensus_weights / sum(consensus_weights).
	var cwSum float64
	for _, c := range consensusWeights {
		cwSum += c
	}
	incentives := make([]float64, nCorals)
	if cwSum > 0 {
		for j, c := range consensusWeights {
			incentives[j] = c / cwSum
		}
	}

	// Step 7: dividends = agreement[i] * norm_stake[i] * sum(bonds[i]) normalized.
	rawDividends := make([]float64, nValidators)
	var divSum float64
	for i := 0; i < nValidators; i++ {
		var bondSum float64
		for _, b := range bonds[i] {
			bondSum += b
		}
		rawDividends[i] = agreement[i] * normStakes[i] * bondSum
		divSum += rawDividends[i]
	}
	dividends := make([]float64, nValidators)
	if divSum > 0 {
		for i, d := range rawDividends {
			dividends[i] = d / divSum
		}
	}

	return Result{
		ConsensusWeights: consensusWeights,
		Incentives:       incentives,
		Dividends:        dividends,
		Bonds:            bonds,
		HardenedPolypIDs: nil,
	}
}
