// Bench is a benchmarking tool for measuring per-row KDF cost, empty table
// generation and table fill throughput.
//
// Usage:
//
//	go run ./cmd/bench --runs 20 --fill-rows 100000 --workers 8
//
// Flags:
//
//	--runs        Timed repetitions per measurement (default: 20)
//	--iterations  PBKDF2 iteration counts (default: 1000,10000,100000,600000,1000000)
//	--argon2id    Argon2id sets as m:t:p (default: 7168:5:1)
//	--gen-rows    Rows to enumerate per generation run, 0 for the full keyspace (default: 10,000,000)
//	--fill-rows   Rows to fill per fill run, 0 to skip (default: 20,000)
//	--fill-iterations  PBKDF2 iterations for fill runs (default: 1000)
//	--workers     Fill workers, 0 for GOMAXPROCS (default: 0)
//	--mmap        Use anonymous mappings for tables (default: true)
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	mrand "math/rand/v2"
	"os"
	"runtime"
	"runtime/metrics"
	"runtime/pprof"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/tamirms/kdftable"
)

// getMaxRSS returns the peak resident set size of the process in bytes.
func getMaxRSS() uint64 {
	var rusage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, Maxrss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// stats summarises a set of timings the way the lookup benchmark reports
// them: median and the empirical 2.5th/97.5th percentiles.
type stats struct {
	median, lower, upper time.Duration
}

func summarize(samples []time.Duration) stats {
	if len(samples) == 0 {
		return stats{}
	}
	s := slices.Clone(samples)
	slices.Sort(s)
	n := len(s)
	var st stats
	if n%2 == 1 {
		st.median = s[n/2]
	} else {
		st.median = (s[n/2-1] + s[n/2]) / 2
	}
	st.lower = s[int(0.025*float64(n))]
	st.upper = s[max(int(math.Ceil(0.975*float64(n)))-1, 0)]
	return st
}

type result struct {
	name  string
	stats stats
	note  string
}

func parseArgon2idSets(s string) ([]kdftable.Params, error) {
	var out []kdftable.Params
	for _, set := range strings.Split(s, ",") {
		set = strings.TrimSpace(set)
		if set == "" {
			continue
		}
		parts := strings.Split(set, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("argon2id set %q: want m:t:p", set)
		}
		var v [3]uint64
		for i, part := range parts {
			n, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("argon2id set %q: %w", set, err)
			}
			v[i] = n
		}
		if v[2] > 255 {
			return nil, fmt.Errorf("argon2id set %q: parallelism above 255", set)
		}
		out = append(out, kdftable.Argon2idParams(uint32(v[0]), uint32(v[1]), uint8(v[2]), kdftable.DigestSize))
	}
	return out, nil
}

// randomPasscode draws a non-blacklisted passcode uniformly from the keyspace.
func randomPasscode() kdftable.Passcode {
	span := uint32(kdftable.MaxPasscode - kdftable.MinPasscode + 1)
	for {
		p := kdftable.MinPasscode + kdftable.Passcode(mrand.Uint32N(span))
		if !kdftable.IsBlacklisted(p) {
			return p
		}
	}
}

// timeDerive times single-row derivations, each with a fresh salt and passcode.
func timeDerive(params kdftable.Params, runs int) (stats, error) {
	backend, err := kdftable.NewBackend(params)
	if err != nil {
		return stats{}, err
	}
	samples := make([]time.Duration, 0, runs)
	for range runs {
		var salt kdftable.Salt
		_, _ = rand.Read(salt[:])
		p := randomPasscode()
		start := time.Now()
		if _, err := kdftable.Derive(backend, p, &salt); err != nil {
			return stats{}, err
		}
		samples = append(samples, time.Since(start))
	}
	return summarize(samples), nil
}

func timeGenerate(ks kdftable.Keyspace, runs int, opts []kdftable.TableOption) (stats, error) {
	samples := make([]time.Duration, 0, runs)
	for range runs {
		start := time.Now()
		table, err := kdftable.NewTable(ks, opts...)
		if err != nil {
			return stats{}, err
		}
		samples = append(samples, time.Since(start))
		if err := table.Close(); err != nil {
			return stats{}, err
		}
	}
	return summarize(samples), nil
}

func timeFill(ks kdftable.Keyspace, params kdftable.Params, runs, workers int, opts []kdftable.TableOption) (stats, error) {
	backend, err := kdftable.NewBackend(params)
	if err != nil {
		return stats{}, err
	}
	samples := make([]time.Duration, 0, runs)
	for range runs {
		table, err := kdftable.NewTable(ks, opts...)
		if err != nil {
			return stats{}, err
		}
		var salt kdftable.Salt
		_, _ = rand.Read(salt[:])
		report, err := kdftable.FillTable(context.Background(), table, salt, backend, kdftable.WithWorkers(workers))
		if cerr := table.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return stats{}, err
		}
		samples = append(samples, report.Duration)
	}
	return summarize(samples), nil
}

// subKeyspace returns a keyspace of roughly n rows starting at the minimum
// passcode, or the full keyspace when n is zero.
func subKeyspace(n int) (kdftable.Keyspace, error) {
	full := kdftable.DefaultKeyspace()
	if n <= 0 || n >= full.Len() {
		return full, nil
	}
	return kdftable.NewKeyspace(kdftable.MinPasscode, kdftable.MinPasscode+kdftable.Passcode(n-1))
}

func main() {
	runs := flag.Int("runs", 20, "timed repetitions per measurement")
	iterations := flag.UintSlice("iterations", []uint{1000, 10_000, 100_000, 600_000, 1_000_000}, "PBKDF2 iteration counts")
	argonFlag := flag.String("argon2id", "7168:5:1", "comma-separated Argon2id sets as m:t:p")
	genRows := flag.Int("gen-rows", 10_000_000, "rows per generation run (0 = full keyspace)")
	fillRows := flag.Int("fill-rows", 20_000, "rows per fill run (0 = skip)")
	fillIterations := flag.Uint32("fill-iterations", 1000, "PBKDF2 iterations for fill runs")
	workers := flag.Int("workers", 0, "fill workers (0 = GOMAXPROCS)")
	useMmap := flag.Bool("mmap", true, "use anonymous mappings for tables")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	argonSets, err := parseArgon2idSets(*argonFlag)
	if err != nil {
		fmt.Printf("Invalid --argon2id: %v\n", err)
		return
	}
	var tableOpts []kdftable.TableOption
	if *useMmap {
		tableOpts = append(tableOpts, kdftable.WithAnonymousMapping())
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baselineRSS := getMaxRSS()

	// 10ms sampling for peak heap. runtime/metrics avoids the stop-the-world
	// pause of ReadMemStats.
	var peakHeap atomic.Uint64
	done := make(chan struct{})
	go func() {
		samples := []metrics.Sample{{Name: "/memory/classes/heap/objects:bytes"}}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				heapBytes := samples[0].Value.Uint64()
				for {
					old := peakHeap.Load()
					if heapBytes <= old || peakHeap.CompareAndSwap(old, heapBytes) {
						break
					}
				}
			}
		}
	}()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Printf("could not create CPU profile: %v\n", err)
			return
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Printf("could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	var results []result

	genKS, err := subKeyspace(*genRows)
	if err != nil {
		fmt.Printf("Invalid --gen-rows: %v\n", err)
		return
	}
	fmt.Printf("Generating empty tables over %s...\n", genKS)
	st, err := timeGenerate(genKS, *runs, tableOpts)
	if err != nil {
		fmt.Printf("Generation failed: %v\n", err)
		return
	}
	results = append(results, result{"gen_empty_table", st, fmt.Sprintf("%d rows", genKS.Len())})

	for _, it := range *iterations {
		params := kdftable.PBKDF2Params(uint32(it))
		fmt.Printf("Timing %s...\n", params)
		st, err := timeDerive(params, *runs)
		if err != nil {
			fmt.Printf("PBKDF2 failed: %v\n", err)
			return
		}
		results = append(results, result{"pbkdf2_" + strconv.FormatUint(uint64(it), 10), st, "per row"})
	}
	for _, params := range argonSets {
		fmt.Printf("Timing %s...\n", params)
		st, err := timeDerive(params, *runs)
		if err != nil {
			fmt.Printf("Argon2id failed: %v\n", err)
			return
		}
		results = append(results, result{fmt.Sprintf("argon2id_%d_%d_%d", params.MemoryKiB, params.TimeCost, params.Parallelism), st, "per row"})
	}

	if *fillRows > 0 {
		fillKS, err := subKeyspace(*fillRows)
		if err != nil {
			fmt.Printf("Invalid --fill-rows: %v\n", err)
			return
		}
		params := kdftable.PBKDF2Params(*fillIterations)
		fmt.Printf("Filling %s with %s...\n", fillKS, params)
		st, err := timeFill(fillKS, params, *runs, *workers, tableOpts)
		if err != nil {
			fmt.Printf("Fill failed: %v\n", err)
			return
		}
		rate := float64(fillKS.Len()) / st.median.Seconds()
		results = append(results, result{"hash_table_" + strconv.FormatUint(uint64(*fillIterations), 10), st, fmt.Sprintf("%.0f rows/s", rate)})
	}

	close(done)
	peakRSS := getMaxRSS()

	fmt.Printf("\n")
	fmt.Printf("╔══════════════════════════╦══════════════╦═══════════════════════════════╦══════════════════╗\n")
	fmt.Printf("║ Benchmark                ║ Median       ║ 95%% interval                  ║ Note             ║\n")
	fmt.Printf("╠══════════════════════════╬══════════════╬═══════════════════════════════╬══════════════════╣\n")
	for _, r := range results {
		fmt.Printf("║ %-24s ║ %12s ║ [%12s, %12s] ║ %-16s ║\n",
			r.name, fmtDuration(r.stats.median), fmtDuration(r.stats.lower), fmtDuration(r.stats.upper), r.note)
	}
	fmt.Printf("╠══════════════════════════╬══════════════╩═══════════════════════════════╩══════════════════╣\n")
	fmt.Printf("║ Peak heap memory         ║ %8.1f MB %-51s║\n", float64(peakHeap.Load())/1_000_000, "")
	fmt.Printf("║ Peak RSS memory          ║ %8.1f MB %-51s║\n", float64(peakRSS-baselineRSS)/1_000_000, "")
	fmt.Printf("╚══════════════════════════╩═════════════════════════════════════════════════════════════════╝\n")
}

func fmtDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
