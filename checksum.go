package kdftable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/xxh3"

	intbits "github.com/tamirms/kdftable/internal/bits"
)

const (
	// targetSegments is the number of segments a large table is cut into.
	// Segments are the unit of work assignment and of checksumming.
	targetSegments = 4096

	// minSegmentRows keeps small tables from degenerating into one-row segments.
	minSegmentRows = 64
)

// segmentRowsFor returns the segment size for a table of n rows. It depends
// on n alone, so the checksum does not depend on the worker count.
func segmentRowsFor(n int) int {
	return max(intbits.CeilDiv(n, targetSegments), minSegmentRows)
}

// segmentHash hashes one segment's rows (passcodes and digests).
func segmentHash(rows []Row) uint64 {
	return xxh3.Hash(rowBytes(rows))
}

// foldSegmentHashes folds per-segment hashes, in segment order, into one
// streaming xxHash64. Workers hash their segments while the digests are
// hot in cache; the fold runs after the join.
func foldSegmentHashes(hashes []uint64) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, sh := range hashes {
		binary.LittleEndian.PutUint64(buf[:], sh)
		if _, err := h.Write(buf[:]); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
	}
	return h.Sum64()
}

// checksumRows computes the table checksum sequentially.
func checksumRows(rows []Row) uint64 {
	segRows := segmentRowsFor(len(rows))
	hashes := make([]uint64, intbits.CeilDiv(len(rows), segRows))
	for s := range hashes {
		hashes[s] = segmentHash(segment(rows, s, segRows))
	}
	return foldSegmentHashes(hashes)
}

// segment returns rows of segment s.
func segment(rows []Row, s, segRows int) []Row {
	start := s * segRows
	return rows[start:min(start+segRows, len(rows))]
}
