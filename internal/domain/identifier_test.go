package domain

import "testing"

func TestSpaceHash(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	a := space.Hash([]byte("alpha"))
	b := space.Hash([]byte("alpha"))
	c := space.Hash([]byte("beta"))
	if !a.Equal(b) {
		t.Fatalf("Hash is not deterministic: %s != %s", a, b)
	}
	if len(a) != space.ByteLen {
		t.Fatalf("Hash length = %d, want %d", len(a), space.ByteLen)
	}
	if a.Equal(c) {
		t.Fatalf("distinct inputs hashed to the same id: %s", a)
	}
}

func TestBetween(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	id := func(v uint64) ID { return space.FromUint64(v) }

	tests := []struct {
		name   string
		x, a, b uint64
		want   bool
	}{
		{"inside ascending interval", 5, 1, 10, true},
		{"equals upper bound", 10, 1, 10, true},
		{"equals lower bound excluded", 1, 1, 10, false},
		{"outside ascending interval", 20, 1, 10, false},
		{"wrap-around inside", 250, 240, 10, true},
		{"wrap-around outside", 100, 240, 10, false},
		{"whole ring when a==b", 42, 7, 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := id(tt.x).Between(id(tt.a), id(tt.b))
			if got != tt.want {
				t.Errorf("Between(%d, %d, %d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestBetweenOpen(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	id := func(v uint64) ID { return space.FromUint64(v) }

	tests := []struct {
		name    string
		x, a, b uint64
		want    bool
	}{
		{"strictly inside", 5, 1, 10, true},
		{"equals lower bound", 1, 1, 10, false},
		{"equals upper bound", 10, 1, 10, false},
		{"whole ring minus self when a==b", 8, 7, 7, true},
		{"excludes self when a==b", 7, 7, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := id(tt.x).BetweenOpen(id(tt.a), id(tt.b))
			if got != tt.want {
				t.Errorf("BetweenOpen(%d, %d, %d) = %v, want %v", tt.x, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAddMod(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	sum, err := space.AddMod(space.FromUint64(250), space.FromUint64(10))
	if err != nil {
		t.Fatalf("AddMod: %v", err)
	}
	want := space.FromUint64(4) // (250+10) mod 256
	if !sum.Equal(want) {
		t.Fatalf("AddMod(250, 10) = %s, want %s", sum, want)
	}
}

func TestFingerStart(t *testing.T) {
	space, err := NewSpace(8)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	base := space.FromUint64(10)
	got, err := space.FingerStart(base, 2)
	if err != nil {
		t.Fatalf("FingerStart: %v", err)
	}
	want := space.FromUint64(14) // 10 + 2^2
	if !got.Equal(want) {
		t.Fatalf("FingerStart(10, 2) = %s, want %s", got, want)
	}
}

func TestFromHexStringRoundTrip(t *testing.T) {
	space, err := NewSpace(16)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	id := space.FromUint64(0xBEEF)
	parsed, err := space.FromHexString(id.String())
	if err != nil {
		t.Fatalf("FromHexString: %v", err)
	}
	if !parsed.Equal(id) {
		t.Fatalf("round trip mismatch: %s != %s", parsed, id)
	}
	if _, err := space.FromHexString("not-hex"); err == nil {
		t.Fatalf("expected error for malformed hex string")
	}
}

func TestIsValidID(t *testing.T) {
	space, err := NewSpace(4)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	if err := space.IsValidID([]byte{0x0F}); err != nil {
		t.Fatalf("IsValidID(0x0F) in a 4-bit space: %v", err)
	}
	if err := space.IsValidID([]byte{0x10}); err == nil {
		t.Fatalf("expected error for an id exceeding a 4-bit space")
	}
}
