// Package pbkdf2 implements the PBKDF2-HMAC-SHA256 table backend.
package pbkdf2

import (
	"fmt"

	sha256 "github.com/minio/sha256-simd"
	xpbkdf2 "golang.org/x/crypto/pbkdf2"

	kdferrors "github.com/tamirms/kdftable/errors"
)

// hmacStateSize approximates the memory one in-flight derivation holds:
// inner and outer SHA-256 states plus the running U and T blocks.
const hmacStateSize = 512

// Hasher derives digests with PBKDF2-HMAC-SHA256.
//
// SHA-256 comes from sha256-simd, which selects SHA-NI, AVX-512 or ARM64
// SHA2 instructions at startup and is bit-identical to crypto/sha256.
//
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	iterations int
	keyLen     int
}

// New returns a hasher for the given iteration count and output length.
func New(iterations uint32, keyLen int) (*Hasher, error) {
	if iterations == 0 {
		return nil, fmt.Errorf("%w: pbkdf2 iteration count must be positive", kdferrors.ErrInvalidParams)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: pbkdf2 output length must be positive", kdferrors.ErrInvalidParams)
	}
	return &Hasher{iterations: int(iterations), keyLen: keyLen}, nil
}

// Derive writes PBKDF2(password, salt) into dst, which must be exactly
// the configured output length.
func (h *Hasher) Derive(dst, password, salt []byte) error {
	if len(dst) != h.keyLen {
		return fmt.Errorf("pbkdf2: destination is %d bytes, want %d", len(dst), h.keyLen)
	}
	copy(dst, xpbkdf2.Key(password, salt, h.iterations, h.keyLen, sha256.New))
	return nil
}

// MemoryCost returns the bytes held by one in-flight derivation.
func (h *Hasher) MemoryCost() uint64 { return hmacStateSize }

// Iterations returns the configured iteration count.
func (h *Hasher) Iterations() int { return h.iterations }

func (h *Hasher) String() string {
	return fmt.Sprintf("pbkdf2-hmac-sha256(iterations=%d)", h.iterations)
}
