package transport

import "sync/atomic"

// Stats counts operations sent by a transport
type Stats struct {
	queries   atomic.Uint64
	mutations atomic.Uint64
	failures  atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	Queries   uint64
	Mutations uint64
	Failures  uint64
}

func (s *Stats) incQueries() {
	s.queries.Add(1)
}

func (s *Stats) incMutations() {
	s.mutations.Add(1)
}

func (s *Stats) incFailures() {
	s.failures.Add(1)
}

// Snapshot returns the current counters
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Queries:   s.queries.Load(),
		Mutations: s.mutations.Load(),
		Failures:  s.failures.Load(),
	}
}
