package utils

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Stripes is a fixed set of mutexes addressed by key hash. Two keys may
// share a stripe; the same key always maps to the same one.
type Stripes struct {
	locks []sync.Mutex
}

func NewStripes(n int) *Stripes {
	if n <= 0 {
		n = 64
	}
	return &Stripes{locks: make([]sync.Mutex, n)}
}

func (s *Stripes) Lock(key string) (unlock func()) {
	m := &s.locks[xxhash.Sum64String(key)%uint64(len(s.locks))]
	m.Lock()
	return m.Unlock
}
