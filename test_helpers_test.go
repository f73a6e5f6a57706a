package kdftable

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"sync/atomic"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG seeded from the test name, so every test gets a
// different but reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomSalt draws a salt from rng.
func randomSalt(rng *rand.Rand) Salt {
	var s Salt
	for i := 0; i < SaltSize; i += 8 {
		binary.LittleEndian.PutUint64(s[i:], rng.Uint64())
	}
	return s
}

// Cheap parameter sets: real KDFs, test-sized costs.
var (
	testPBKDF2Params   = PBKDF2Params(2)
	testArgon2idParams = Argon2idParams(64, 1, 1, DigestSize)
)

func mustBackend(t testing.TB, p Params) Backend {
	t.Helper()
	b, err := NewBackend(p)
	if err != nil {
		t.Fatalf("NewBackend(%v): %v", p, err)
	}
	return b
}

func mustKeyspace(t testing.TB, min, max Passcode) Keyspace {
	t.Helper()
	ks, err := NewKeyspace(min, max)
	if err != nil {
		t.Fatalf("NewKeyspace(%d, %d): %v", min, max, err)
	}
	return ks
}

func mustTable(t testing.TB, ks Keyspace, opts ...TableOption) *Table {
	t.Helper()
	table, err := NewTable(ks, opts...)
	if err != nil {
		t.Fatalf("NewTable(%v): %v", ks, err)
	}
	t.Cleanup(func() { _ = table.Close() })
	return table
}

// filledTable enumerates ks and fills it with the given backend.
func filledTable(t testing.TB, ks Keyspace, salt Salt, backend Backend, opts ...FillOption) (*Table, *FillReport) {
	t.Helper()
	table := mustTable(t, ks)
	report, err := FillTable(context.Background(), table, salt, backend, opts...)
	if err != nil {
		t.Fatalf("FillTable: %v", err)
	}
	return table, report
}

// digestsOf copies a table's digests.
func digestsOf(table *Table) []Digest {
	out := make([]Digest, 0, table.Len())
	for _, d := range table.All() {
		out = append(out, d)
	}
	return out
}

var errInjected = errors.New("injected failure")

// faultyBackend wraps a backend and fails (or panics) on one passcode.
type faultyBackend struct {
	Backend
	failOn  Passcode
	panics  bool
	derived atomic.Int64
}

func (f *faultyBackend) Derive(dst, passcode, salt []byte) error {
	f.derived.Add(1)
	if Passcode(binary.LittleEndian.Uint32(passcode)) == f.failOn {
		if f.panics {
			panic("injected panic")
		}
		return errInjected
	}
	return f.Backend.Derive(dst, passcode, salt)
}

// countingBackend records the number of Derive calls per passcode.
type countingBackend struct {
	Backend
	calls []atomic.Int32
	base  Passcode
}

func newCountingBackend(inner Backend, ks Keyspace) *countingBackend {
	return &countingBackend{
		Backend: inner,
		calls:   make([]atomic.Int32, int(ks.Max()-ks.Min())+1),
		base:    ks.Min(),
	}
}

func (c *countingBackend) Derive(dst, passcode, salt []byte) error {
	p := Passcode(binary.LittleEndian.Uint32(passcode))
	c.calls[p-c.base].Add(1)
	return c.Backend.Derive(dst, passcode, salt)
}
