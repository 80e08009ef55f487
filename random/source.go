package random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

const (
	mantissaBits = 53
	drawSize     = 8
)

// Source yields uniformly distributed floats in [0, 1).
//
// Implementations must be safe for concurrent use.
type Source interface {
	Float64() float64
}

// ReaderSource derives floats from an io.Reader. Reads are serialized, so a
// single ReaderSource may be shared by concurrent sessions.
type ReaderSource struct {
	mu sync.Mutex
	r  io.Reader
}

var system = &ReaderSource{r: rand.Reader}

// System returns the process-wide source backed by crypto/rand.
func System() Source {
	return system
}

// NewReaderSource wraps r. Intended for tests that need a reproducible stream;
// production code uses [System].
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Float64 returns a uniform float in [0, 1). It panics if the underlying
// reader fails or runs dry.
func (s *ReaderSource) Float64() float64 {
	var buf [drawSize]byte

	s.mu.Lock()
	_, err := io.ReadFull(s.r, buf[:])
	s.mu.Unlock()
	if err != nil {
		panic(fmt.Sprintf("random: entropy source unavailable: %v", err))
	}

	v := binary.BigEndian.Uint64(buf[:]) >> (64 - mantissaBits)
	return float64(v) / (1 << mantissaBits)
}

// Float64 draws from the system source.
func Float64() float64 {
	return system.Float64()
}

// Intn returns floor(src.Float64() * n), a uniform integer in [0, n).
// It panics if n <= 0.
func Intn(src Source, n int) int {
	if n <= 0 {
		panic("random: Intn called with non-positive n")
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Between returns a uniform float in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
