package kdftable

import (
	"fmt"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// rowStorage owns the memory behind a table's rows.
type rowStorage interface {
	release() error
}

// heapStorage is row memory owned by the Go heap.
type heapStorage struct{}

func (heapStorage) release() error { return nil }

// mappedStorage is row memory in an anonymous mapping.
type mappedStorage struct {
	mmap mmap.MMap
}

func (s *mappedStorage) release() error {
	if s.mmap == nil {
		return nil
	}
	err := s.mmap.Unmap()
	s.mmap = nil
	if err != nil {
		return fmt.Errorf("unmap table storage: %w", err)
	}
	return nil
}

// mapRows maps an anonymous, zero-filled region for n rows and views it
// as []Row. Row has alignment 1 and holds no pointers, so the view is
// valid at any page-aligned address.
func mapRows(n int, prefault bool) ([]Row, rowStorage, error) {
	size := n * RowSize
	mm, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	data := []byte(mm)
	adviseHugePages(data)
	if prefault {
		// Enumeration writes every page.
		prefaultRegion(data)
	}

	rows := unsafe.Slice((*Row)(unsafe.Pointer(&data[0])), n)
	return rows, &mappedStorage{mmap: mm}, nil
}

// rowBytes views rows as raw bytes.
func rowBytes(rows []Row) []byte {
	if len(rows) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&rows[0])), len(rows)*RowSize)
}
