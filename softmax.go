package nerdgo

import "math"

// Softmax returns exp(s_i/T) / sum_j exp(s_j/T) over scores.
//
// The maximum is subtracted before exponentiation, which leaves the result
// unchanged and keeps it finite. NaN scores get probability 0. If every score
// is NaN or -Inf the mass is spread evenly.
func Softmax(scores []float32, temperature float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	maxScore := math.Inf(-1)
	for _, s := range scores {
		if v := float64(s); !math.IsNaN(v) && v > maxScore {
			maxScore = v
		}
	}
	if math.IsInf(maxScore, -1) {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}

	var sum float64
	for i, s := range scores {
		v := float64(s)
		if math.IsNaN(v) {
			continue
		}
		if math.IsInf(maxScore, 1) {
			// Only the +Inf scores share the mass.
			if math.IsInf(v, 1) {
				out[i] = 1
			}
		} else {
			out[i] = math.Exp((v - maxScore) / temperature)
		}
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
