package clock

import (
	"sync"
	"time"
)

// Clock supplies the current unix timestamp in seconds. Deadline checks and
// price-accumulator updates read time only through this interface.
type Clock interface {
	Now() uint64
}

// System reads the wall clock.
type System struct{}

func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a settable clock for tests.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}

// Set pins the clock to t.
func (m *Manual) Set(t uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
