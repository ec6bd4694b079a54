// Package index answers top-k similarity queries over an embedding store.
//
// Flat is an exact brute-force index: every query scores all rows by inner
// product and keeps the best k in a bounded heap. Results are ordered by
// descending score with ties broken by ascending id, and NaN scores rank
// after every number, so the order is fully deterministic. Parallel scans
// split the store into contiguous shards and merge their heaps; because each
// score is computed by the same sequential kernel, parallel and sequential
// searches return identical results.
//
// Scores are not renormalized: the index ranks by the raw inner product of
// the stored vectors and the query.
package index
