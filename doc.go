// Package kdftable builds exhaustive passcode precomputation tables: every
// valid numeric passcode in [1, 99 999 998], minus a fixed blacklist of
// trivially weak values, mapped to its KDF digest under one known salt.
//
// Two interchangeable backends are provided, PBKDF2-HMAC-SHA256 and
// Argon2id. Filling is fanned out across all available cores; the cost of
// a fill is the per-row KDF cost divided by the effective parallelism.
//
// # Basic Usage
//
//	table := kdftable.GenerateEmptyTable()
//	defer table.Close()
//
//	backend, err := kdftable.NewBackend(kdftable.PBKDF2Params(1000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var salt kdftable.Salt
//	if _, err := rand.Read(salt[:]); err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := kdftable.FillTable(ctx, table, salt, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d rows in %s\n", report.Rows, report.Duration)
//
// The full table holds 99 999 988 rows of 36 bytes (about 3.6 GB). For
// Argon2id every worker additionally holds its configured memory cost, so
// peak memory is table bytes + memory cost × workers; WithMemoryBudget
// caps the worker count accordingly.
//
// # Package Structure
//
//   - Keyspace and blacklist: keyspace.go (Keyspace, Passcode, IsBlacklisted)
//   - Table: table.go (GenerateEmptyTable, NewTable), table_storage.go (heap or anonymous mmap)
//   - Backends: algorithm.go (Backend, Params, NewBackend), internal/pbkdf2, internal/argon2id
//   - Fill engine: fill.go (FillTable), fill_options.go (FillOption, With* functions)
//   - Integrity: checksum.go (segment xxh3 folded into xxHash64), sample.go (Verify)
//   - Platform: prefault_*.go (OS-specific memory hints)
package kdftable
