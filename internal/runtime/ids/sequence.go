package ids

import "sync/atomic"

// Sequence issues transaction indexes for correlated requests. Indexes
// start at 1 and are never reused within a process, so a late reply to a
// timed-out request can never be claimed by a newer one. The zero value is
// ready to use.
type Sequence struct {
	last atomic.Int64
}

// Next claims the next transaction index.
func (s *Sequence) Next() int {
	return int(s.last.Add(1))
}

// Last returns the most recently claimed index, or 0 when none has been
// claimed yet.
func (s *Sequence) Last() int {
	return int(s.last.Load())
}
