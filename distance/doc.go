// Package distance provides the similarity kernels used by candidate retrieval.
//
// Retrieval scores are plain inner products; encoders are expected to emit
// vectors whose inner product is the intended similarity. NormalizeL2 is
// available to callers that want cosine similarity instead.
package distance
