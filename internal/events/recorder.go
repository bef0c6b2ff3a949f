package events

import (
	"sync"

	"flashPool/internal/model"
)

// Recorder receives records emitted by pools. DropLast exists so a reverted
// operation can unwind its emissions through the state journal; reverts run
// in reverse order, so dropping the most recent record is always correct.
type Recorder interface {
	Append(rec model.Record)
	DropLast()
}

// Memory buffers records in order of emission.
type Memory struct {
	mu      sync.Mutex
	records []model.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(rec model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *Memory) DropLast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) > 0 {
		m.records = m.records[:len(m.records)-1]
	}
}

// Records returns a copy of the buffered records.
func (m *Memory) Records() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Drain returns the buffered records and resets the buffer.
func (m *Memory) Drain() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.records
	m.records = nil
	return out
}

// Nop discards all records.
type Nop struct{}

func (Nop) Append(model.Record) {}
func (Nop) DropLast()           {}
