package kdftable

import (
	"encoding/binary"
	"fmt"
	"iter"

	kdferrors "github.com/tamirms/kdftable/errors"
)

const (
	// MinPasscode is the smallest passcode in the keyspace.
	MinPasscode Passcode = 0x0000001

	// MaxPasscode is the largest passcode in the keyspace (99 999 998).
	MaxPasscode Passcode = 0x5F5E0FE

	// PasscodeSize is the width of a passcode as it is fed to a KDF.
	PasscodeSize = 4
)

// Passcode is a numeric passcode from the keyspace.
type Passcode uint32

// Bytes returns the little-endian encoding hashed by the backends.
func (p Passcode) Bytes() [PasscodeSize]byte {
	var b [PasscodeSize]byte
	binary.LittleEndian.PutUint32(b[:], uint32(p))
	return b
}

// passcodeFromBytes decodes a little-endian passcode.
func passcodeFromBytes(b [PasscodeSize]byte) Passcode {
	return Passcode(binary.LittleEndian.Uint32(b[:]))
}

// blacklist holds the trivially weak passcodes: every 8-digit repdigit plus
// the two straight runs. 0 and 99999999 lie outside [MinPasscode, MaxPasscode].
var blacklist = [12]Passcode{
	0, 11111111, 22222222, 33333333, 44444444, 55555555, 66666666, 77777777, 88888888, 99999999,
	12345678, 87654321,
}

// blacklistSet is built once and never mutated.
var blacklistSet = func() map[Passcode]struct{} {
	s := make(map[Passcode]struct{}, len(blacklist))
	for _, p := range blacklist {
		s[p] = struct{}{}
	}
	return s
}()

// Blacklist returns a copy of the excluded passcodes.
func Blacklist() []Passcode {
	return append([]Passcode(nil), blacklist[:]...)
}

// IsBlacklisted reports whether p is excluded from every table.
func IsBlacklisted(p Passcode) bool {
	_, ok := blacklistSet[p]
	return ok
}

// Keyspace is an inclusive passcode range. Blacklisted values inside the
// range are skipped during enumeration.
type Keyspace struct {
	min, max Passcode
}

// DefaultKeyspace returns the full keyspace [MinPasscode, MaxPasscode].
func DefaultKeyspace() Keyspace {
	return Keyspace{min: MinPasscode, max: MaxPasscode}
}

// NewKeyspace returns the sub-range [min, max] of the default keyspace.
func NewKeyspace(min, max Passcode) (Keyspace, error) {
	if min > max || min < MinPasscode || max > MaxPasscode {
		return Keyspace{}, fmt.Errorf("%w: [%d, %d]", kdferrors.ErrInvalidRange, min, max)
	}
	return Keyspace{min: min, max: max}, nil
}

// Min returns the lower bound of the range.
func (k Keyspace) Min() Passcode { return k.min }

// Max returns the upper bound of the range.
func (k Keyspace) Max() Passcode { return k.max }

// Len returns the exact number of valid passcodes in the range.
func (k Keyspace) Len() int {
	n := int(k.max-k.min) + 1
	for _, p := range blacklist {
		if p >= k.min && p <= k.max {
			n--
		}
	}
	return n
}

// Contains reports whether p is a valid member of the keyspace.
func (k Keyspace) Contains(p Passcode) bool {
	return p >= k.min && p <= k.max && !IsBlacklisted(p)
}

// All yields every valid passcode in ascending order.
func (k Keyspace) All() iter.Seq[Passcode] {
	return func(yield func(Passcode) bool) {
		// Loop on a wider type so max == MaxUint32 cannot wrap.
		for v := uint64(k.min); v <= uint64(k.max); v++ {
			p := Passcode(v)
			if IsBlacklisted(p) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// String implements fmt.Stringer.
func (k Keyspace) String() string {
	return fmt.Sprintf("[%d, %d]", k.min, k.max)
}
