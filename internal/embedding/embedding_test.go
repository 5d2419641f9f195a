package embedding

import (
	"math"
	"testing"
)

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("hello world", 8)
	b := Hash("hello world", 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("dimension %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashIsNormalized(t *testing.T) {
	v := Hash("some capsule content", 16)
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Fatalf("expected unit norm, got %v", norm)
	}
}

func TestHashDiffersByText(t *testing.T) {
	a := Hash("foo", 8)
	b := Hash("bar", 8)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different text to produce different vectors")
	}
}

func TestHashZeroDims(t *testing.T) {
	if v := Hash("x", 0); v != nil {
		t.Fatalf("expected nil for zero dims, got %v", v)
	}
}
