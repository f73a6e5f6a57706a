package kdftable

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	kdferrors "github.com/tamirms/kdftable/errors"
	intbits "github.com/tamirms/kdftable/internal/bits"
)

// Sample is one spot-checked row.
type Sample struct {
	Index    int
	Passcode Passcode
	Digest   Digest
}

// SampleIndices returns n row indices in [0, rows), chosen deterministically
// from seed. Indices may repeat.
func SampleIndices(rows, n int, seed uint32) []int {
	if rows <= 0 || n <= 0 {
		return nil
	}
	out := make([]int, n)
	var buf [8]byte
	for i := range out {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h := murmur3.Sum64WithSeed(buf[:], seed)
		out[i] = int(intbits.FastRange32(h, uint32(rows)))
	}
	return out
}

// Verify recomputes n sampled rows of a filled table and compares them to
// the stored digests. It returns the sampled rows, or an error wrapping
// ErrDigestMismatch naming the first row that differs.
//
// Pass the salt and backend of the fill that produced the table.
func Verify(ctx context.Context, t *Table, salt Salt, backend Backend, n int, seed uint32) ([]Sample, error) {
	if err := t.requireFilled(); err != nil {
		return nil, err
	}

	indices := SampleIndices(t.Len(), n, seed)
	samples := make([]Sample, 0, len(indices))
	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, stored := t.At(i)
		want, err := Derive(backend, p, &salt)
		if err != nil {
			return nil, fmt.Errorf("recompute passcode %d: %w", p, err)
		}
		if want != stored {
			return nil, fmt.Errorf("%w: row %d passcode %d: stored %x, recomputed %x",
				kdferrors.ErrDigestMismatch, i, p, stored[:], want[:])
		}
		samples = append(samples, Sample{Index: i, Passcode: p, Digest: stored})
	}
	return samples, nil
}
