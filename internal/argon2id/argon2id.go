// Package argon2id implements the Argon2id table backend.
package argon2id

import (
	"fmt"

	"golang.org/x/crypto/argon2"

	kdferrors "github.com/tamirms/kdftable/errors"
)

// Version is the Argon2 version every digest is computed with (0x13).
const Version = argon2.Version

// minBlocksPerLane is the Argon2 lower bound on memory: 8 KiB blocks per lane.
const minBlocksPerLane = 8

// Config holds the Argon2id cost parameters.
type Config struct {
	MemoryKiB   uint32
	TimeCost    uint32
	Parallelism uint8
	KeyLen      uint32
}

// Validate checks the parameters against the Argon2 constraints and the
// table's digest size.
func (c Config) Validate(digestSize int) error {
	switch {
	case c.MemoryKiB == 0:
		return fmt.Errorf("%w: argon2id memory cost must be positive", kdferrors.ErrInvalidParams)
	case c.TimeCost == 0:
		return fmt.Errorf("%w: argon2id time cost must be positive", kdferrors.ErrInvalidParams)
	case c.Parallelism == 0:
		return fmt.Errorf("%w: argon2id parallelism must be positive", kdferrors.ErrInvalidParams)
	case c.KeyLen == 0:
		return fmt.Errorf("%w: argon2id output length must be positive", kdferrors.ErrInvalidParams)
	case c.MemoryKiB < minBlocksPerLane*uint32(c.Parallelism):
		return fmt.Errorf("%w: argon2id memory cost %d KiB below %d KiB for parallelism %d",
			kdferrors.ErrInvalidParams, c.MemoryKiB, minBlocksPerLane*uint32(c.Parallelism), c.Parallelism)
	case int(c.KeyLen) != digestSize:
		return fmt.Errorf("%w: argon2id output length %d does not match %d-byte digests",
			kdferrors.ErrInvalidParams, c.KeyLen, digestSize)
	}
	return nil
}

// Hasher derives digests with Argon2id. It is immutable and safe for
// concurrent use; every Derive allocates its own MemoryKiB working set.
type Hasher struct {
	cfg Config
}

// New validates cfg and returns a hasher producing digestSize-byte outputs.
func New(cfg Config, digestSize int) (*Hasher, error) {
	if err := cfg.Validate(digestSize); err != nil {
		return nil, err
	}
	return &Hasher{cfg: cfg}, nil
}

// Derive writes Argon2id(password, salt) into dst.
func (h *Hasher) Derive(dst, password, salt []byte) error {
	if len(dst) != int(h.cfg.KeyLen) {
		return fmt.Errorf("argon2id: destination is %d bytes, want %d", len(dst), h.cfg.KeyLen)
	}
	copy(dst, argon2.IDKey(password, salt, h.cfg.TimeCost, h.cfg.MemoryKiB, h.cfg.Parallelism, h.cfg.KeyLen))
	return nil
}

// MemoryCost returns the bytes held by one in-flight derivation.
func (h *Hasher) MemoryCost() uint64 { return uint64(h.cfg.MemoryKiB) * 1024 }

// Config returns the validated parameters.
func (h *Hasher) Config() Config { return h.cfg }

func (h *Hasher) String() string {
	return fmt.Sprintf("argon2id(m=%d,t=%d,p=%d,len=%d)",
		h.cfg.MemoryKiB, h.cfg.TimeCost, h.cfg.Parallelism, h.cfg.KeyLen)
}
