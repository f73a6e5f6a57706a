package kdftable

import (
	"fmt"
	"iter"
	"sync"
	"unsafe"

	kdferrors "github.com/tamirms/kdftable/errors"
)

const (
	// DigestSize is the size of every KDF output stored in a table.
	DigestSize = 32

	// SaltSize is the size of the salt shared by all rows of one fill.
	SaltSize = 32

	// RowSize is the in-memory size of a Row (no padding).
	RowSize = PasscodeSize + DigestSize
)

// Compile-time check that Row carries no padding.
var _ [RowSize - unsafe.Sizeof(Row{})]struct{}
var _ [unsafe.Sizeof(Row{}) - RowSize]struct{}

// Digest is the KDF output for one row. All-zero until the row is filled.
type Digest [DigestSize]byte

// IsZero reports whether the digest has not been written.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Salt is mixed into every row of a fill.
type Salt [SaltSize]byte

// Row pairs a little-endian passcode with its digest.
type Row struct {
	Passcode [PasscodeSize]byte
	Digest   Digest
}

type tableState int

const (
	stateEmpty tableState = iota
	stateFilling
	stateFilled
	stateAborted
	stateClosed
)

// Table is the precomputation table: one row per valid passcode of its
// keyspace, ascending by passcode value.
//
// A table is filled at most once. Rows are read-only once filled; the
// accessors must not be used while a fill is running.
type Table struct {
	keyspace Keyspace
	rows     []Row
	storage  rowStorage

	mu    sync.Mutex
	state tableState
}

// GenerateEmptyTable enumerates the full default keyspace into a
// heap-backed table with every digest zero. It is deterministic and
// allocates roughly 3.6 GB.
func GenerateEmptyTable() *Table {
	ks := DefaultKeyspace()
	rows := make([]Row, ks.Len())
	enumerate(rows, ks)
	return &Table{keyspace: ks, rows: rows, storage: heapStorage{}}
}

// NewTable enumerates ks into a new table. By default rows live on the Go
// heap; WithAnonymousMapping places them in an anonymous memory mapping.
func NewTable(ks Keyspace, opts ...TableOption) (*Table, error) {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	n := ks.Len()
	var (
		rows    []Row
		storage rowStorage
	)
	if cfg.anonymousMapping && n > 0 {
		var err error
		rows, storage, err = mapRows(n, cfg.prefault)
		if err != nil {
			return nil, fmt.Errorf("allocate table storage for %d rows: %w", n, err)
		}
	} else {
		rows, storage = make([]Row, n), heapStorage{}
	}

	enumerate(rows, ks)
	return &Table{keyspace: ks, rows: rows, storage: storage}, nil
}

// enumerate writes every valid passcode of ks into rows, in order.
// rows must be exactly ks.Len() long with zeroed digests.
func enumerate(rows []Row, ks Keyspace) {
	i := 0
	for p := range ks.All() {
		rows[i].Passcode = p.Bytes()
		i++
	}
	if i != len(rows) {
		panic(fmt.Sprintf("kdftable: enumerated %d passcodes into %d rows", i, len(rows)))
	}
}

// Keyspace returns the range the table was enumerated from.
func (t *Table) Keyspace() Keyspace { return t.keyspace }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Bytes returns the memory held by the rows.
func (t *Table) Bytes() uint64 { return uint64(len(t.rows)) * RowSize }

// At returns the passcode and digest of row i.
func (t *Table) At(i int) (Passcode, Digest) {
	r := &t.rows[i]
	return passcodeFromBytes(r.Passcode), r.Digest
}

// All yields every row in ascending passcode order.
func (t *Table) All() iter.Seq2[Passcode, Digest] {
	return func(yield func(Passcode, Digest) bool) {
		for i := range t.rows {
			r := &t.rows[i]
			if !yield(passcodeFromBytes(r.Passcode), r.Digest) {
				return
			}
		}
	}
}

// Filled reports whether a fill completed successfully.
func (t *Table) Filled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateFilled
}

// Checksum recomputes the row checksum of a filled table. It equals the
// FillReport.Checksum of the fill that produced it.
func (t *Table) Checksum() (uint64, error) {
	if err := t.requireFilled(); err != nil {
		return 0, err
	}
	return checksumRows(t.rows), nil
}

// Close releases the table storage. The table cannot be used afterwards.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateClosed:
		return nil
	case stateFilling:
		return kdferrors.ErrTableBusy
	}
	t.state = stateClosed
	t.rows = nil
	return t.storage.release()
}

// beginFill moves an empty table into the filling state.
func (t *Table) beginFill() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateEmpty:
		t.state = stateFilling
		return nil
	case stateFilling:
		return kdferrors.ErrTableBusy
	case stateFilled:
		return kdferrors.ErrTableFilled
	case stateAborted:
		return kdferrors.ErrTableAborted
	default:
		return kdferrors.ErrTableClosed
	}
}

// cancelFill returns a table to the empty state when a fill is rejected
// before any row was touched.
func (t *Table) cancelFill() {
	t.mu.Lock()
	t.state = stateEmpty
	t.mu.Unlock()
}

// finishFill records the outcome of a fill.
func (t *Table) finishFill(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.state = stateFilled
		return
	}
	t.state = stateAborted
}

func (t *Table) requireFilled() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateFilled:
		return nil
	case stateAborted:
		return kdferrors.ErrTableAborted
	case stateClosed:
		return kdferrors.ErrTableClosed
	case stateFilling:
		return kdferrors.ErrTableBusy
	default:
		return kdferrors.ErrTableEmpty
	}
}

// clearDigests zeroes every digest after an aborted fill.
func clearDigests(rows []Row) {
	for i := range rows {
		rows[i].Digest = Digest{}
	}
}
