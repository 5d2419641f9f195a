package matrix

import "testing"

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-10
}

func TestBasicEMAWithoutPenalty(t *testing.T) {
	b := NewBondMatrix(2, 2)
	b.Bonds[0][0] = 0.5
	b.Bonds[0][1] = 0.3
	b.Bonds[1][0] = 0.4
	b.Bonds[1][1] = 0.6

	w := NewWeightMatrix(2, 2)
	w.Set(0, 0, 0.8)
	w.Set(0, 1, 0.2)
	w.Set(1, 0, 0.6)
	w.Set(1, 1, 0.4)

	alpha := 0.3
	consensus := []float64{0.8, 0.2}

	b.UpdateEMA(w, alpha, 0.0, consensus)

	if !almostEqual(b.Bonds[0][0], 0.59) {
		t.Fatalf("B[0][0] = %v, want 0.59", b.Bonds[0][0])
	}
	if !almostEqual(b.Bonds[0][1], 0.27) {
		t.Fatalf("B[0][1] = %v, want 0.27", b.Bonds[0][1])
	}
	if !almostEqual(b.Bonds[1][0], 0.46) {
		t.Fatalf("B[1][0] = %v, want 0.46", b.Bonds[1][0])
	}
	if !almostEqual(b.Bonds[1][1], 0.54) {
		t.Fatalf("B[1][1] = %v, want 0.54", b.Bonds[1][1])
	}
}

func TestEMAWithPenaltyReducesBondsForDisagreeingValidators(t *testing.T) {
	b := NewBondMatrix(2, 1)
	b.Bonds[0][0] = 0.5
	b.Bonds[1][0] = 0.5

	w := NewWeightMatrix(2, 1)
	w.Set(0, 0, 0.8)
	w.Set(1, 0, 0.2)

	alpha := 0.5
	bondPenalty := 0.5
	consensus := []float64{0.8}

	b.UpdateEMA(w, alpha, bondPenalty, consensus)

	if !almostEqual(b.Bonds[0][0], 0.65) {
		t.Fatalf("B[0][0] = %v, want 0.65", b.Bonds[0][0])
	}
	if !almostEqual(b.Bonds[1][0], 0.05) {
		t.Fatalf("B[1][0] = %v, want 0.05", b.Bonds[1][0])
	}
	if !(b.Bonds[0][0] > b.Bonds[1][0]) {
		t.Fatal("expected agreeing validator to have higher bond")
	}
}

func TestBondsClampToZero(t *testing.T) {
	b := NewBondMatrix(1, 1)
	b.Bonds[0][0] = 0.1

	w := NewWeightMatrix(1, 1)
	w.Set(0, 0, 0.0)

	b.UpdateEMA(w, 0.5, 2.0, []float64{1.0})

	if b.Bonds[0][0] != 0.0 {
		t.Fatalf("got %v want 0.0", b.Bonds[0][0])
	}
}

func TestEmptyMatrixStaysEmpty(t *testing.T) {
	b := NewBondMatrix(0, 0)
	w := NewWeightMatrix(0, 0)
	b.UpdateEMA(w, 0.5, 0.1, []float64{})
	if len(b.Bonds) != 0 {
		t.Fatal("expected empty bond matrix to stay empty")
	}
}

func TestNormalizeZeroRowStaysZero(t *testing.T) {
	w := NewWeightMatrix(1, 3)
	w.Normalize()
	for _, v := range w.Weights[0] {
		if v != 0 {
			t.Fatalf("expected zero row to stay zero, got %v", v)
		}
	}
}

func TestNormalizeSumsToOne(t *testing.T) {
	w := NewWeightMatrix(1, 2)
	w.Set(0, 0, 2.0)
	w.Set(0, 1, 2.0)
	w.Normalize()
	if !almostEqual(w.Get(0, 0), 0.5) || !almostEqual(w.Get(0, 1), 0.5) {
		t.Fatalf("got [%v, %v], want [0.5, 0.5]", w.Get(0, 0), w.Get(0, 1))
	}
}
