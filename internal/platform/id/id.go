package id

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// UUID generates random v4 identifiers. Outbound requests use it for X-Request-ID.
type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}

// Sequence returns a fixed prefix plus a counter so tests can assert on generated ids.
type Sequence struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func (s *Sequence) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.Prefix + strconv.Itoa(s.next)
}
