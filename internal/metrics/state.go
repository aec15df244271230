package metrics

import (
	"sync"
	"time"
)

// phaseState keeps track of when each phase began so that its duration can
// be observed when it ends.
type phaseState struct {
	started map[string]time.Time
	mux     sync.Mutex
}

func newPhaseState() *phaseState {
	return &phaseState{
		started: map[string]time.Time{},
	}
}

func (s *phaseState) begin(phase string, now time.Time) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.started[phase] = now
}

// end returns how long the phase took. ok is false for phases that never began.
func (s *phaseState) end(phase string, now time.Time) (d time.Duration, ok bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	start, ok := s.started[phase]
	if !ok {
		return 0, false
	}
	delete(s.started, phase)
	return now.Sub(start), true
}
