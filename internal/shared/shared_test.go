package shared

import (
	"testing"
	"time"

	"github.com/r-baldridge/chitin-core/internal/consensus"
	"github.com/r-baldridge/chitin-core/internal/matrix"
)

func TestNewStateHasZeroSizedMatrices(t *testing.T) {
	s := New(100, nil)
	if len(s.WeightMatrix().Weights) != 0 {
		t.Fatal("expected zero-sized initial weight matrix")
	}
	if len(s.BondMatrix().Bonds) != 0 {
		t.Fatal("expected zero-sized initial bond matrix")
	}
	if s.LastConsensusResult() != nil {
		t.Fatal("expected no consensus result before first epoch")
	}
}

func TestSetWeightMatrixReplacesLive(t *testing.T) {
	s := New(100, nil)
	wm := matrix.NewWeightMatrix(2, 3)
	wm.Set(0, 0, 0.5)
	s.SetWeightMatrix(wm)

	if got := s.WeightMatrix().Get(0, 0); got != 0.5 {
		t.Fatalf("got %v want 0.5", got)
	}
}

func TestSetWeightRowUpdatesInPlace(t *testing.T) {
	s := New(100, nil)
	s.SetWeightMatrix(matrix.NewWeightMatrix(2, 3))

	if err := s.SetWeightRow(1, []float64{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("SetWeightRow: %v", err)
	}
	if got := s.WeightMatrix().Get(1, 1); got != 0.2 {
		t.Fatalf("got %v want 0.2", got)
	}
}

func TestSetWeightRowRejectsOutOfRangeValidator(t *testing.T) {
	s := New(100, nil)
	s.SetWeightMatrix(matrix.NewWeightMatrix(1, 2))

	if err := s.SetWeightRow(5, []float64{0.1, 0.2}); err == nil {
		t.Fatal("expected error for out-of-range validator id")
	}
}

func TestSetWeightRowRejectsWrongLength(t *testing.T) {
	s := New(100, nil)
	s.SetWeightMatrix(matrix.NewWeightMatrix(1, 2))

	if err := s.SetWeightRow(0, []float64{0.1}); err == nil {
		t.Fatal("expected error for mismatched score length")
	}
}

func TestSetLastConsensusResultRoundTrips(t *testing.T) {
	s := New(100, nil)
	r := &consensus.Result{ConsensusWeights: []float64{0.5, 0.5}}
	s.SetLastConsensusResult(r)

	got := s.LastConsensusResult()
	if got == nil || len(got.ConsensusWeights) != 2 {
		t.Fatal("expected consensus result to round-trip")
	}
}

func TestUptimeIncreasesOverTime(t *testing.T) {
	s := New(100, nil)
	time.Sleep(5 * time.Millisecond)
	if s.Uptime() <= 0 {
		t.Fatal("expected positive uptime")
	}
}
