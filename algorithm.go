package kdftable

import (
	"fmt"
	"strings"

	kdferrors "github.com/tamirms/kdftable/errors"
	"github.com/tamirms/kdftable/internal/argon2id"
	"github.com/tamirms/kdftable/internal/pbkdf2"
)

// BackendID identifies the KDF used to fill a table.
type BackendID uint16

const (
	// BackendPBKDF2 is PBKDF2-HMAC-SHA256 parameterised by an iteration count.
	BackendPBKDF2 BackendID = 1

	// BackendArgon2id is Argon2id (v0x13) parameterised by memory cost,
	// time cost, parallelism and output length.
	BackendArgon2id BackendID = 2
)

// String returns the backend name.
func (b BackendID) String() string {
	switch b {
	case BackendPBKDF2:
		return "pbkdf2"
	case BackendArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseBackendID parses a backend name as printed by String.
func ParseBackendID(s string) (BackendID, error) {
	switch strings.ToLower(s) {
	case "pbkdf2", "pbkdf2-hmac-sha256":
		return BackendPBKDF2, nil
	case "argon2id", "argon2":
		return BackendArgon2id, nil
	}
	return 0, fmt.Errorf("%w: %q", kdferrors.ErrUnknownBackend, s)
}

// Params selects a backend and carries its parameters. Only the fields of
// the selected backend are read.
type Params struct {
	Backend BackendID

	// PBKDF2
	Iterations uint32

	// Argon2id
	MemoryKiB   uint32
	TimeCost    uint32
	Parallelism uint8
	OutputLen   uint32
}

// PBKDF2Params returns parameters for PBKDF2-HMAC-SHA256.
func PBKDF2Params(iterations uint32) Params {
	return Params{Backend: BackendPBKDF2, Iterations: iterations}
}

// Argon2idParams returns parameters for Argon2id.
func Argon2idParams(memoryKiB, timeCost uint32, parallelism uint8, outputLen uint32) Params {
	return Params{
		Backend:     BackendArgon2id,
		MemoryKiB:   memoryKiB,
		TimeCost:    timeCost,
		Parallelism: parallelism,
		OutputLen:   outputLen,
	}
}

// String returns a compact description used in logs and benchmark names.
func (p Params) String() string {
	switch p.Backend {
	case BackendPBKDF2:
		return fmt.Sprintf("pbkdf2/i=%d", p.Iterations)
	case BackendArgon2id:
		return fmt.Sprintf("argon2id/m=%d,t=%d,p=%d,len=%d", p.MemoryKiB, p.TimeCost, p.Parallelism, p.OutputLen)
	default:
		return fmt.Sprintf("unknown(%d)", p.Backend)
	}
}

// Backend computes one row digest from one passcode and the shared salt.
//
// This interface hides which KDF is active from the fill engine. Each
// backend validates its parameters once, at construction; after that,
// Derive does not fail for well-formed inputs.
//
// # Thread Safety
//
// A Backend is shared read-only by all fill workers and must be safe for
// concurrent use.
type Backend interface {
	// Derive writes the digest of passcode under salt into dst.
	//
	// Parameters:
	//   - dst: DigestSize bytes, overwritten
	//   - passcode: the PasscodeSize-byte little-endian passcode
	//   - salt: SaltSize bytes
	//
	// An error is fatal for the fill that requested the row.
	Derive(dst, passcode, salt []byte) error

	// MemoryCost returns the bytes held by one in-flight Derive call. The
	// fill engine multiplies it by the worker count to bound peak memory.
	MemoryCost() uint64
}

// NewBackend validates p and constructs the selected backend.
//
// Returns an error wrapping ErrInvalidParams for inconsistent parameters
// and ErrUnknownBackend for an unset or unknown Backend tag. No hashing is
// performed.
func NewBackend(p Params) (Backend, error) {
	switch p.Backend {
	case BackendPBKDF2:
		h, err := pbkdf2.New(p.Iterations, DigestSize)
		if err != nil {
			return nil, err
		}
		return h, nil
	case BackendArgon2id:
		h, err := argon2id.New(argon2id.Config{
			MemoryKiB:   p.MemoryKiB,
			TimeCost:    p.TimeCost,
			Parallelism: p.Parallelism,
			KeyLen:      p.OutputLen,
		}, DigestSize)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w: backend ID %d", kdferrors.ErrUnknownBackend, p.Backend)
}

// Derive computes the digest of a single passcode. It is the single-row
// form of FillTable, used by spot checks and benchmarks.
func Derive(backend Backend, p Passcode, salt *Salt) (Digest, error) {
	var d Digest
	pc := p.Bytes()
	if err := backend.Derive(d[:], pc[:], salt[:]); err != nil {
		return Digest{}, err
	}
	return d, nil
}
