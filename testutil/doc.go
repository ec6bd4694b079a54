// Package testutil provides deterministic data generators for tests.
//
// This package is intended for use in tests and benchmarks only.
//
//	rng := testutil.NewRNG(seed)
//	rows := rng.UnitVectors(100, 32)
//	want := testutil.ExactTopK(rows, rows[0], 5)
package testutil
