package kdftable

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	kdferrors "github.com/tamirms/kdftable/errors"
	intbits "github.com/tamirms/kdftable/internal/bits"
)

// contextCheckInterval is how many rows a worker hashes between checks for
// cancellation.
const contextCheckInterval = 64

// FillReport describes a completed fill.
type FillReport struct {
	Rows     int
	Workers  int
	Segments int
	Duration time.Duration

	// Checksum is an xxHash64 over the filled rows, independent of the
	// worker count. Equal checksums mean equal tables.
	Checksum uint64
}

// Progress is a snapshot of a running fill.
type Progress struct {
	Done      uint64
	Total     uint64
	PerWorker []uint64
	Elapsed   time.Duration
}

// Rate returns rows hashed per second so far.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Done) / p.Elapsed.Seconds()
}

// FillTable computes every row's digest in place:
// digest_i = backend.Derive(passcode_i, salt).
//
// Rows are cut into segments, and the segments into contiguous disjoint
// ranges, one per worker. Workers share salt and backend read-only and
// never touch each other's rows, so no locking is needed; FillTable
// returns after all workers have joined.
//
// A fill is all-or-nothing. If any row fails, or ctx is cancelled, the
// remaining workers stop, every digest is reset to zero, the table is
// marked aborted and the returned error wraps ErrRowHash (or the context
// error). An aborted table cannot be filled again.
//
// Configuration errors (negative workers, memory budget) are returned
// before any row is touched and leave the table empty.
func FillTable(ctx context.Context, t *Table, salt Salt, backend Backend, opts ...FillOption) (*FillReport, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", kdferrors.ErrInvalidParams)
	}

	cfg := defaultFillConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 0 {
		return nil, fmt.Errorf("%w: %d", kdferrors.ErrInvalidWorkers, cfg.workers)
	}

	if err := t.beginFill(); err != nil {
		return nil, err
	}

	rows := t.rows
	segRows := segmentRowsFor(len(rows))
	numSegments := intbits.CeilDiv(len(rows), segRows)

	workers, err := planWorkers(cfg, numSegments, t.Bytes(), backend.MemoryCost())
	if err != nil {
		t.cancelFill()
		return nil, err
	}

	log := cfg.logger.With("keyspace", t.keyspace.String(), "backend", fmt.Sprint(backend))
	log.Info("fill started", "rows", len(rows), "segments", numSegments, "workers", workers)

	start := time.Now()
	segHashes := make([]uint64, numSegments)
	counters := make([]atomic.Uint64, workers)
	stopProgress := startProgress(cfg, counters, uint64(len(rows)), start)

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		bounds := intbits.SplitRange(numSegments, workers)
		for w := range workers {
			fw := &fillWorker{
				rows:      rows,
				segRows:   segRows,
				salt:      salt[:],
				backend:   backend,
				segHashes: segHashes,
				done:      &counters[w],
			}
			lo, hi := bounds[w], bounds[w+1]
			g.Go(func() error { return fw.run(gctx, lo, hi) })
		}
	}
	err = g.Wait()
	stopProgress()
	elapsed := time.Since(start)

	if err != nil {
		clearDigests(rows)
		t.finishFill(false)
		log.Error("fill aborted", "error", err, "elapsed", elapsed)
		if !errors.Is(err, kdferrors.ErrRowHash) {
			err = fmt.Errorf("fill aborted: %w", err)
		}
		return nil, err
	}

	report := &FillReport{
		Rows:     len(rows),
		Workers:  workers,
		Segments: numSegments,
		Duration: elapsed,
		Checksum: foldSegmentHashes(segHashes),
	}
	t.finishFill(true)
	log.Info("fill finished", "elapsed", elapsed, "checksum", fmt.Sprintf("%016x", report.Checksum))
	return report, nil
}

// planWorkers resolves the worker count for a fill.
func planWorkers(cfg *fillConfig, segments int, tableBytes, perHash uint64) (int, error) {
	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, segments)

	if cfg.memoryBudget > 0 && workers > 0 {
		if tableBytes+perHash > cfg.memoryBudget {
			return 0, fmt.Errorf("%w: table %d bytes + %d bytes per hash > budget %d bytes",
				kdferrors.ErrMemoryBudget, tableBytes, perHash, cfg.memoryBudget)
		}
		if perHash > 0 {
			fit := (cfg.memoryBudget - tableBytes) / perHash
			if fit < uint64(workers) {
				workers = int(fit)
			}
		}
	}
	return workers, nil
}

// fillWorker hashes a contiguous range of segments.
type fillWorker struct {
	rows      []Row
	segRows   int
	salt      []byte
	backend   Backend
	segHashes []uint64 // shared; each worker writes only its own indices
	done      *atomic.Uint64
}

// run fills segments [lo, hi). A panic in the backend is reported as a row
// failure rather than crashing the process.
func (w *fillWorker) run(ctx context.Context, lo, hi int) (err error) {
	var current *Row
	defer func() {
		if r := recover(); r != nil {
			if current == nil {
				err = fmt.Errorf("%w: panic: %v", kdferrors.ErrRowHash, r)
				return
			}
			err = fmt.Errorf("%w: passcode %d: panic: %v", kdferrors.ErrRowHash, passcodeFromBytes(current.Passcode), r)
		}
	}()

	for s := lo; s < hi; s++ {
		seg := segment(w.rows, s, w.segRows)
		for i := range seg {
			if i%contextCheckInterval == 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
			current = &seg[i]
			if err := w.backend.Derive(current.Digest[:], current.Passcode[:], w.salt); err != nil {
				return fmt.Errorf("%w: passcode %d: %w", kdferrors.ErrRowHash, passcodeFromBytes(current.Passcode), err)
			}
			w.done.Add(1)
		}
		w.segHashes[s] = segmentHash(seg)
	}
	return nil
}

// startProgress runs the progress reporter until the returned func is
// called. The reporter publishes a final snapshot on stop.
func startProgress(cfg *fillConfig, counters []atomic.Uint64, total uint64, start time.Time) func() {
	if cfg.progressFn == nil || cfg.progressInterval <= 0 {
		return func() {}
	}

	snapshot := func() Progress {
		per := make([]uint64, len(counters))
		var done uint64
		for i := range counters {
			per[i] = counters[i].Load()
			done += per[i]
		}
		return Progress{Done: done, Total: total, PerWorker: per, Elapsed: time.Since(start)}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(cfg.progressInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				cfg.progressFn(snapshot())
				return
			case <-t.C:
				p := snapshot()
				cfg.logger.Debug("fill progress", "done", p.Done, "total", p.Total, "rows_per_sec", p.Rate())
				cfg.progressFn(p)
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
	}
}
