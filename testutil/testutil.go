package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/nerdgo/distance"
)

// SearchResult is a ground-truth hit.
type SearchResult struct {
	ID    uint32
	Score float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
// Uses a single backing array.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		vectors[i] = vec
	}
	return vectors
}

// UnitVectors generates L2-normalized random vectors, uniform on the hypersphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		r.fillUnitLocked(vec)
		vectors[i] = vec
	}
	return vectors
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float32, dimensions)
	r.fillUnitLocked(vec)
	return vec
}

func (r *RNG) fillUnitLocked(vec []float32) {
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		norm = 1
	}
	inv := float32(1.0 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= inv
	}
}

var titleWords = []string{
	"river", "north", "saint", "castle", "lake", "union", "grand",
	"port", "valley", "royal", "new", "old", "east", "bridge",
}

// Title returns a random multi-word entity title.
func (r *RNG) Title() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 1 + r.rand.Intn(3)
	title := ""
	for i := range n {
		if i > 0 {
			title += " "
		}
		title += titleWords[r.rand.Intn(len(titleWords))]
	}
	return fmt.Sprintf("%s %d", title, r.rand.Intn(1000))
}

// ExactTopK ranks rows by inner product with query: descending score,
// ties by ascending row number.
func ExactTopK(rows [][]float32, query []float32, k int) []SearchResult {
	results := make([]SearchResult, len(rows))
	for i, v := range rows {
		results[i] = SearchResult{ID: uint32(i), Score: distance.Dot(v, query)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
