package challenge

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/MrEthical07/goCaptcha/random"
)

// hashStream is a reproducible byte stream: SHA-256 over a seed and a counter.
type hashStream struct {
	mu      sync.Mutex
	seed    string
	counter uint64
	buf     []byte
}

func (h *hashStream) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for n < len(p) {
		if len(h.buf) == 0 {
			var ctr [8]byte
			binary.BigEndian.PutUint64(ctr[:], h.counter)
			h.counter++
			sum := sha256.Sum256(append([]byte(h.seed), ctr[:]...))
			h.buf = sum[:]
		}
		c := copy(p[n:], h.buf)
		h.buf = h.buf[c:]
		n += c
	}
	return n, nil
}

func seededSource(seed string) random.Source {
	return random.NewReaderSource(&hashStream{seed: seed})
}

type stubRenderer struct {
	calls int
	err   error
}

func (s *stubRenderer) Render(text string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("img:" + text), nil
}
