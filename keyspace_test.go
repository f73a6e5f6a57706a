package kdftable

import (
	"errors"
	"slices"
	"testing"

	kdferrors "github.com/tamirms/kdftable/errors"
)

func TestDefaultKeyspaceLen(t *testing.T) {
	ks := DefaultKeyspace()

	// 0 and 99999999 are blacklisted but lie outside the range, so ten
	// blacklisted values are removed from the 99 999 998 candidates.
	const want = int(MaxPasscode-MinPasscode+1) - 10
	if got := ks.Len(); got != want {
		t.Fatalf("DefaultKeyspace().Len() = %d, want %d", got, want)
	}
	if want != 99_999_988 {
		t.Fatalf("arithmetic check: want = %d", want)
	}
}

func TestBlacklist(t *testing.T) {
	bl := Blacklist()
	if len(bl) != 12 {
		t.Fatalf("len(Blacklist()) = %d, want 12", len(bl))
	}
	for d := Passcode(0); d <= 9; d++ {
		repdigit := d * 11111111
		if !IsBlacklisted(repdigit) {
			t.Errorf("repdigit %08d not blacklisted", repdigit)
		}
	}
	for _, p := range []Passcode{12345678, 87654321} {
		if !IsBlacklisted(p) {
			t.Errorf("%d not blacklisted", p)
		}
	}
	for _, p := range []Passcode{1, 11111110, 11111112, 12345679, 99999998} {
		if IsBlacklisted(p) {
			t.Errorf("%d unexpectedly blacklisted", p)
		}
	}

	// The returned slice is a copy.
	bl[1] = 42
	if !IsBlacklisted(11111111) || IsBlacklisted(42) {
		t.Error("mutating Blacklist() result changed the blacklist")
	}
}

func TestNewKeyspaceValidation(t *testing.T) {
	tests := []struct {
		name     string
		min, max Passcode
		wantErr  bool
	}{
		{"full", MinPasscode, MaxPasscode, false},
		{"single", 5, 5, false},
		{"zero_min", 0, 10, true},
		{"above_max", 10, MaxPasscode + 1, true},
		{"inverted", 20, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeyspace(tt.min, tt.max)
			if tt.wantErr {
				if !errors.Is(err, kdferrors.ErrInvalidRange) {
					t.Errorf("expected ErrInvalidRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestKeyspaceAllSkipsBlacklist walks ranges around every in-range
// blacklisted value and checks order, membership and the Len arithmetic.
func TestKeyspaceAllSkipsBlacklist(t *testing.T) {
	for _, center := range Blacklist() {
		var lo, hi Passcode
		wantLen := 1000
		switch {
		case center < MinPasscode:
			lo, hi = MinPasscode, MinPasscode+999
		case center > MaxPasscode:
			lo, hi = MaxPasscode-999, MaxPasscode
		default:
			lo, hi = center-500, center+500
		}
		ks := mustKeyspace(t, lo, hi)

		got := slices.Collect(ks.All())
		if len(got) != ks.Len() || len(got) != wantLen {
			t.Fatalf("%v: All() yielded %d, Len() = %d, want %d", ks, len(got), ks.Len(), wantLen)
		}
		if !slices.IsSorted(got) {
			t.Fatalf("%v: All() is not ascending", ks)
		}
		for i, p := range got {
			if IsBlacklisted(p) {
				t.Fatalf("%v: blacklisted %d yielded", ks, p)
			}
			if !ks.Contains(p) {
				t.Fatalf("%v: Contains(%d) = false", ks, p)
			}
			if i > 0 && p != got[i-1]+1 && !(p == got[i-1]+2 && IsBlacklisted(got[i-1]+1)) {
				t.Fatalf("%v: gap between %d and %d", ks, got[i-1], p)
			}
		}
		if got[0] != lo && !(IsBlacklisted(lo) && got[0] == lo+1) {
			t.Fatalf("%v: first passcode %d", ks, got[0])
		}
	}
}

func TestKeyspaceAllStopsEarly(t *testing.T) {
	ks := mustKeyspace(t, 100, 200)
	n := 0
	for range ks.All() {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("iterated %d times, want 3", n)
	}
}

func TestPasscodeBytesLittleEndian(t *testing.T) {
	p := Passcode(0x01020304)
	if got, want := p.Bytes(), [4]byte{0x04, 0x03, 0x02, 0x01}; got != want {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if got, want := Passcode(1).Bytes(), [4]byte{0x01, 0, 0, 0}; got != want {
		t.Errorf("Passcode(1).Bytes() = %x, want %x", got, want)
	}
	if got := passcodeFromBytes(p.Bytes()); got != p {
		t.Errorf("passcodeFromBytes(Bytes()) = %d, want %d", got, p)
	}
}
