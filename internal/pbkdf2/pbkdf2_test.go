package pbkdf2

import (
	stdsha256 "crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	xpbkdf2 "golang.org/x/crypto/pbkdf2"

	kdferrors "github.com/tamirms/kdftable/errors"
)

func TestDeriveVectors(t *testing.T) {
	seqSalt := make([]byte, 32)
	for i := range seqSalt {
		seqSalt[i] = byte(i)
	}

	tests := []struct {
		name       string
		password   []byte
		salt       []byte
		iterations uint32
		want       string
	}{
		{
			name:       "passcode1_zero_salt_1000",
			password:   []byte{0x01, 0x00, 0x00, 0x00},
			salt:       make([]byte, 32),
			iterations: 1000,
			want:       "598417b6bfad3f83475be5db7ed7d43962fa267a141a0a26d398bed05b8ba116",
		},
		{
			name:       "passcode12345679_seq_salt_1",
			password:   []byte{0x4f, 0x61, 0xbc, 0x00},
			salt:       seqSalt,
			iterations: 1,
			want:       "a2eb8384f5d688048e11d04558f499e472dd2a3dfd8a40b0537c3b9ec1956e78",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(tt.iterations, 32)
			if err != nil {
				t.Fatal(err)
			}
			dst := make([]byte, 32)
			if err := h.Derive(dst, tt.password, tt.salt); err != nil {
				t.Fatal(err)
			}
			if got := hex.EncodeToString(dst); got != tt.want {
				t.Fatalf("digest = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestSIMDMatchesStdlib compares the sha256-simd construction against
// crypto/sha256 over a spread of inputs.
func TestSIMDMatchesStdlib(t *testing.T) {
	h, err := New(3, 32)
	if err != nil {
		t.Fatal(err)
	}
	salt := []byte("0123456789abcdef0123456789abcdef")
	dst := make([]byte, 32)
	for v := uint32(0); v < 64; v++ {
		pw := []byte{byte(v * 37), byte(v), byte(v >> 3), 0}
		if err := h.Derive(dst, pw, salt); err != nil {
			t.Fatal(err)
		}
		want := xpbkdf2.Key(pw, salt, 3, 32, stdsha256.New)
		if string(dst) != string(want) {
			t.Fatalf("input %x: simd %x, stdlib %x", pw, dst, want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 32); !errors.Is(err, kdferrors.ErrInvalidParams) {
		t.Errorf("zero iterations: expected ErrInvalidParams, got %v", err)
	}
	if _, err := New(1, 0); !errors.Is(err, kdferrors.ErrInvalidParams) {
		t.Errorf("zero key length: expected ErrInvalidParams, got %v", err)
	}
	h, err := New(600_000, 32)
	if err != nil {
		t.Fatal(err)
	}
	if h.Iterations() != 600_000 {
		t.Errorf("Iterations() = %d", h.Iterations())
	}
}

func TestDeriveWrongDestination(t *testing.T) {
	h, err := New(1, 32)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Derive(make([]byte, 31), []byte{1, 0, 0, 0}, make([]byte, 32)); err == nil {
		t.Fatal("expected error for short destination")
	}
}
