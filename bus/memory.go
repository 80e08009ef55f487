package bus

import (
	"context"
	"sync"
	"time"
)

// Message is one response typed by a subject.
type Message struct {
	SubjectID string `json:"subject_id"`
	Text      string `json:"text"`
}

type waiter struct {
	filter func(subjectID string) bool
	ch     chan string
}

// MemorySource fans published messages out to every pending AwaitOne call.
// The zero value is ready to use.
type MemorySource struct {
	mu      sync.Mutex
	nextID  uint64
	waiters map[uint64]waiter
}

func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

// Publish hands text from subjectID to every waiter whose filter accepts it.
// It returns the number of waiters that received the message.
func (s *MemorySource) Publish(subjectID, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := 0
	for id, w := range s.waiters {
		if w.filter != nil && !w.filter(subjectID) {
			continue
		}
		// Buffered by one and removed right away, so this never blocks.
		w.ch <- text
		delete(s.waiters, id)
		delivered++
	}
	return delivered
}

// Pending reports how many AwaitOne calls are currently blocked.
func (s *MemorySource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

func (s *MemorySource) AwaitOne(ctx context.Context, filter func(subjectID string) bool, timeout time.Duration) (string, bool, error) {
	w := waiter{filter: filter, ch: make(chan string, 1)}

	s.mu.Lock()
	if s.waiters == nil {
		s.waiters = make(map[uint64]waiter)
	}
	id := s.nextID
	s.nextID++
	s.waiters[id] = w
	s.mu.Unlock()

	defer s.remove(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-w.ch:
		return text, true, nil
	case <-timer.C:
		return s.drain(w)
	case <-ctx.Done():
		if text, ok, _ := s.drain(w); ok {
			return text, true, nil
		}
		return "", false, ctx.Err()
	}
}

func (s *MemorySource) remove(id uint64) {
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
}

// drain picks up a message that raced with the timer or ctx.
func (s *MemorySource) drain(w waiter) (string, bool, error) {
	select {
	case text := <-w.ch:
		return text, true, nil
	default:
		return "", false, nil
	}
}
