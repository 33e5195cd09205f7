package secretgen

import (
	"strings"
	"testing"
)

func TestGenerateDistinct(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for range 1000 {
		s, err := Generate(8)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(s) != 8 {
			t.Fatalf("Length = %d, want 8", len(s))
		}
		for _, c := range s {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("Character %q outside alphabet in %q", c, s)
			}
		}
		seen[s] = true
	}
	if len(seen) != 1000 {
		t.Errorf("Got %d distinct secrets out of 1000", len(seen))
	}
}

func TestGenerateLengths(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{-5, MinLength},
		{0, MinLength},
		{1, MinLength},
		{MinLength, MinLength},
		{12, 12},
		{64, 64},
	}

	for _, tt := range tests {
		s, err := Generate(tt.requested)
		if err != nil {
			t.Fatalf("Generate(%d) failed: %v", tt.requested, err)
		}
		if len(s) != tt.want {
			t.Errorf("Generate(%d) length = %d, want %d", tt.requested, len(s), tt.want)
		}
	}
}

func TestGenerateTooLong(t *testing.T) {
	if _, err := Generate(MaxLength + 1); err == nil {
		t.Error("Expected error above MaxLength")
	}
}

func TestRandomLengthBounds(t *testing.T) {
	for range 200 {
		n, err := RandomLength(12, 20)
		if err != nil {
			t.Fatalf("RandomLength failed: %v", err)
		}
		if n < 12 || n > 20 {
			t.Fatalf("RandomLength = %d, outside [12, 20]", n)
		}
	}

	if n, _ := RandomLength(5, 5); n != 5 {
		t.Errorf("RandomLength(5, 5) = %d", n)
	}
}
