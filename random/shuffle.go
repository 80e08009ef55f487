package random

// Shuffle returns a uniformly random permutation of in using Fisher–Yates.
// The result never aliases in; inputs of length 0 or 1 come back as copies.
func Shuffle[T any](src Source, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	if len(out) < 2 {
		return out
	}

	last := len(out) - 1
	for i := 0; i < len(out); i++ {
		j := i + Intn(src, last-i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
