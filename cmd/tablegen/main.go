// Tablegen enumerates the passcode keyspace, fills it with KDF digests under
// a fresh random salt and prints timing, the table checksum and a handful of
// spot-checked rows.
//
// Usage:
//
//	go run ./cmd/tablegen --backend argon2id --workers 16
//	go run ./cmd/tablegen --backend pbkdf2 --iterations 1000 --min 1 --max 1000000
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	flag "github.com/spf13/pflag"

	"github.com/tamirms/kdftable"
)

func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func main() {
	backendFlag := flag.String("backend", "argon2id", "hash backend: pbkdf2 or argon2id")
	iterations := flag.Uint32("iterations", 1000, "PBKDF2 iteration count")
	memory := flag.Uint32("memory", 7168, "Argon2id memory cost in KiB")
	timeCost := flag.Uint32("time", 5, "Argon2id time cost")
	parallelism := flag.Uint8("parallelism", 1, "Argon2id lanes")
	workers := flag.Int("workers", defaultWorkers(), "number of fill workers")
	minFlag := flag.Uint32("min", uint32(kdftable.MinPasscode), "first passcode of the keyspace")
	maxFlag := flag.Uint32("max", uint32(kdftable.MaxPasscode), "last passcode of the keyspace")
	budget := flag.Uint64("memory-budget", 0, "cap on table plus KDF working memory in bytes (0 = none)")
	samples := flag.Int("samples", 5, "rows to recompute and print after the fill")
	useMmap := flag.Bool("mmap", true, "place the table in an anonymous memory mapping")
	verbose := flag.BoolP("verbose", "v", false, "log fill progress")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, config{
		backend:     *backendFlag,
		iterations:  *iterations,
		memory:      *memory,
		timeCost:    *timeCost,
		parallelism: *parallelism,
		workers:     *workers,
		min:         kdftable.Passcode(*minFlag),
		max:         kdftable.Passcode(*maxFlag),
		budget:      *budget,
		samples:     *samples,
		mmap:        *useMmap,
	}); err != nil {
		logger.Error("tablegen failed", "err", err)
		os.Exit(1)
	}
}

type config struct {
	backend     string
	iterations  uint32
	memory      uint32
	timeCost    uint32
	parallelism uint8
	workers     int
	min, max    kdftable.Passcode
	budget      uint64
	samples     int
	mmap        bool
}

func (c config) params() (kdftable.Params, error) {
	id, err := kdftable.ParseBackendID(c.backend)
	if err != nil {
		return kdftable.Params{}, err
	}
	if id == kdftable.BackendPBKDF2 {
		return kdftable.PBKDF2Params(c.iterations), nil
	}
	return kdftable.Argon2idParams(c.memory, c.timeCost, c.parallelism, kdftable.DigestSize), nil
}

func run(logger *slog.Logger, cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("cpu",
		"brand", cpuid.CPU.BrandName,
		"logical_cores", cpuid.CPU.LogicalCores,
		"sha_ni", cpuid.CPU.Supports(cpuid.SHA))

	params, err := cfg.params()
	if err != nil {
		return err
	}
	backend, err := kdftable.NewBackend(params)
	if err != nil {
		return err
	}
	ks, err := kdftable.NewKeyspace(cfg.min, cfg.max)
	if err != nil {
		return err
	}

	var salt kdftable.Salt
	if _, err := rand.Read(salt[:]); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	var tableOpts []kdftable.TableOption
	if cfg.mmap {
		tableOpts = append(tableOpts, kdftable.WithAnonymousMapping())
	}
	genStart := time.Now()
	table, err := kdftable.NewTable(ks, tableOpts...)
	if err != nil {
		return err
	}
	defer table.Close()
	genElapsed := time.Since(genStart)

	fmt.Printf("Keyspace:   %s (%d rows, %.2f GB)\n", ks, table.Len(), float64(table.Bytes())/1e9)
	fmt.Printf("Backend:    %s\n", params)
	fmt.Printf("Salt:       %s\n", hex.EncodeToString(salt[:]))
	fmt.Printf("Generated:  %.3f s\n", genElapsed.Seconds())

	fillOpts := []kdftable.FillOption{
		kdftable.WithWorkers(cfg.workers),
		kdftable.WithLogger(logger),
		kdftable.WithProgress(5*time.Second, func(p kdftable.Progress) {
			logger.Info("progress",
				"done", p.Done,
				"total", p.Total,
				"rows_per_sec", fmt.Sprintf("%.0f", p.Rate()))
		}),
	}
	if cfg.budget > 0 {
		fillOpts = append(fillOpts, kdftable.WithMemoryBudget(cfg.budget))
	}

	report, err := kdftable.FillTable(ctx, table, salt, backend, fillOpts...)
	if err != nil {
		return err
	}

	fmt.Printf("Filled:     %.3f s with %d workers\n", report.Duration.Seconds(), report.Workers)
	fmt.Printf("Throughput: %.1f rows/s\n", float64(report.Rows)/report.Duration.Seconds())
	fmt.Printf("Checksum:   %016x\n", report.Checksum)

	if cfg.samples <= 0 {
		return nil
	}
	checked, err := kdftable.Verify(ctx, table, salt, backend, cfg.samples, uint32(time.Now().UnixNano()))
	if err != nil {
		return err
	}
	fmt.Println("Samples:")
	for _, s := range checked {
		fmt.Printf("  %10d  %08d  %s\n", s.Index, s.Passcode, hex.EncodeToString(s.Digest[:]))
	}
	return nil
}
