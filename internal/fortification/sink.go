package fortification

import "sync"

// Sink accumulates rows appended by concurrent workers. Only the append is
// guarded; rows are kept in arrival order.
type Sink struct {
	mu   sync.Mutex
	rows []Row
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Append adds a row under the sink lock.
func (s *Sink) Append(row Row) {
	s.mu.Lock()
	s.rows = append(s.rows, row)
	s.mu.Unlock()
}

// Len reports how many rows have been appended.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Rows returns a snapshot of the appended rows.
func (s *Sink) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
