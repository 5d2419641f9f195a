package bloom

import (
	"testing"

	"github.com/google/uuid"
)

func TestInsertAndContains(t *testing.T) {
	f := New(100, 0.01)
	id1 := uuid.New()
	id2 := uuid.New()

	f.Insert(id1)

	if !f.Contains(id1) {
		t.Fatal("expected inserted id to be contained")
	}
	// id2 was never inserted; with fp_rate=0.01 a false positive is
	// possible but unlikely. We don't assert false here for the same
	// reason the original test doesn't: it would be a flaky assertion.
	_ = f.Contains(id2)
}

func TestMultipleInsertsNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	ids := make([]uuid.UUID, 100)
	for i := range ids {
		ids[i] = uuid.New()
	}
	for _, id := range ids {
		f.Insert(id)
	}
	for _, id := range ids {
		if !f.Contains(id) {
			t.Fatalf("false negative for %s", id)
		}
	}
}

func TestZeroExpectedItemsDoesNotPanic(t *testing.T) {
	f := New(0, 0.01)
	id := uuid.New()
	f.Insert(id)
	if !f.Contains(id) {
		t.Fatal("expected inserted id to be contained even with degenerate capacity")
	}
}

func TestInvalidFalsePositiveRateFallsBackToDefault(t *testing.T) {
	f := New(100, 0)
	if f.bitmapBits == 0 {
		t.Fatal("expected a non-zero bitmap size")
	}
}

func TestToBytesHeaderIs44Bytes(t *testing.T) {
	f := New(100, 0.01)
	data := f.ToBytes()
	if len(data) < headerSize {
		t.Fatalf("got %d bytes, want at least %d", len(data), headerSize)
	}
	expectedBitmapBytes := (f.bitmapBits + 7) / 8
	if uint64(len(data)) != headerSize+expectedBitmapBytes {
		t.Fatalf("got %d total bytes, want %d", len(data), headerSize+expectedBitmapBytes)
	}
}

func TestRoundTripPreservesMembership(t *testing.T) {
	f := New(500, 0.01)
	ids := make([]uuid.UUID, 50)
	for i := range ids {
		ids[i] = uuid.New()
		f.Insert(ids[i])
	}

	data := f.ToBytes()
	restored, err := FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	for _, id := range ids {
		if !restored.Contains(id) {
			t.Fatalf("round-tripped filter lost membership for %s", id)
		}
	}
}

func TestFromBytesRejectsShortHeader(t *testing.T) {
	_, err := FromBytes(make([]byte, headerSize-1))
	if err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestFromBytesRejectsMismatchedBitmapLength(t *testing.T) {
	f := New(100, 0.01)
	data := f.ToBytes()
	truncated := data[:len(data)-1]
	_, err := FromBytes(truncated)
	if err == nil {
		t.Fatal("expected error for truncated bitmap")
	}
}
