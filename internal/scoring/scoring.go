// Package scoring implements the five-dimensional capsule quality scorer
// used by the validator loop to populate weight matrix rows.
package scoring

import (
	"math"
	"strings"

	"github.com/r-baldridge/chitin-core/internal/polyp"
)

// Scores holds the five quality dimensions, each in [0,1].
type Scores struct {
	ZkValidity        float64 `json:"zk_validity"`
	SemanticQuality   float64 `json:"semantic_quality"`
	Novelty           float64 `json:"novelty"`
	SourceCredibility float64 `json:"source_credibility"`
	EmbeddingQuality  float64 `json:"embedding_quality"`
}

// Weighted dimension weights for the aggregate score (open question
// resolved in SPEC_FULL.md §9): proof validity and textual quality
// dominate, embedding/novelty/source contribute evenly.
const (
	weightZkValidity        = 0.30
	weightSemanticQuality   = 0.25
	weightNovelty           = 0.15
	weightSourceCredibility = 0.15
	weightEmbeddingQuality  = 0.15
)

// WeightedScore combines the five dimensions into the scalar used as a
// validator's weight for a capsule.
func (s Scores) WeightedScore() float64 {
	return weightZkValidity*s.ZkValidity +
		weightSemanticQuality*s.SemanticQuality +
		weightNovelty*s.Novelty +
		weightSourceCredibility*s.SourceCredibility +
		weightEmbeddingQuality*s.EmbeddingQuality
}

// Score evaluates a capsule across all five quality dimensions.
func Score(p *polyp.Polyp) Scores {
	return Scores{
		ZkValidity:        scoreZkValidity(p),
		SemanticQuality:   scoreSemanticQuality(p),
		Novelty:           scoreNovelty(p),
		SourceCredibility: scoreSourceCredibility(p),
		EmbeddingQuality:  scoreEmbeddingQuality(p),
	}
}

func scoreZkValidity(p *polyp.Polyp) float64 {
	v := p.Proof.Value
	isPlaceholder := v == "" || isAllZeroASCII(v)
	if isPlaceholder {
		return 0.5
	}
	return 0.8
}

func isAllZeroASCII(s string) bool {
	for _, b := range []byte(s) {
		if b != '0' {
			return false
		}
	}
	return true
}

func scoreSemanticQuality(p *polyp.Polyp) float64 {
	n := len(p.Subject.Payload.Content)
	switch {
	case n <= 10:
		return 0.1
	case n <= 50:
		return 0.3
	case n <= 200:
		return 0.6
	case n <= 2000:
		return 0.8
	default:
		return 0.9
	}
}

func scoreNovelty(p *polyp.Polyp) float64 {
	values := p.Subject.Vector.Values
	if len(values) == 0 || allZero(values) {
		return 0.0
	}

	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += float64(v)
	}
	mean /= n

	var variance float64
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= n

	score := variance * 10.0
	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

func allZero(values []float32) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func scoreSourceCredibility(p *polyp.Polyp) float64 {
	prov := p.Subject.Provenance
	var score float64

	if strings.TrimSpace(prov.Source.SourceURL) != "" {
		score += 0.2
	}
	if strings.TrimSpace(prov.Source.Title) != "" {
		score += 0.1
	}
	if prov.Creator.Coldkey != ([32]byte{}) {
		score += 0.2
	}

	stepBonus := float64(len(prov.Pipeline.Steps)) * 0.1
	if stepBonus > 0.2 {
		stepBonus = 0.2
	}
	score += stepBonus

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func scoreEmbeddingQuality(p *polyp.Polyp) float64 {
	vector := p.Subject.Vector
	values := vector.Values
	if len(values) == 0 || allZero(values) {
		return 0.0
	}

	var score float64
	if len(values) == vector.Model.Dimensions {
		score += 0.5
	}

	var normSq float64
	for _, v := range values {
		normSq += float64(v) * float64(v)
	}
	l2Norm := math.Sqrt(normSq)
	if math.Abs(l2Norm-1.0) < 0.1 {
		score += 0.3
	}

	if !allZero(values) {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
