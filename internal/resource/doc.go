// Package resource bounds the resources used by merges and request serving.
//
// A Controller tracks three budgets:
//
//   - memory reserved for merged embedding buffers (hard limit, non-blocking)
//   - concurrency slots for offline merge jobs and in-flight predictions
//   - write throughput for publishing generation blobs (token bucket)
//
// A nil *Controller is valid and imposes no limits.
package resource
