package identity

import "testing"

func TestDeriveDID(t *testing.T) {
	var coldkey [32]byte
	coldkey[0] = 0xab
	did := DeriveDID(coldkey)
	want := "did:chitin:ab00000000000000000000000000000000000000000000000000000000000000"
	if did != want {
		t.Fatalf("got %q want %q", did, want)
	}
}

func TestIsPlaceholder(t *testing.T) {
	var zero [32]byte
	id := FromKeys(zero, zero, NodeTypeHybrid)
	if !id.IsPlaceholder() {
		t.Fatal("expected zero coldkey to be a placeholder identity")
	}

	nonZero := zero
	nonZero[5] = 1
	id2 := FromKeys(nonZero, zero, NodeTypeHybrid)
	if id2.IsPlaceholder() {
		t.Fatal("expected non-zero coldkey to not be a placeholder identity")
	}
}
