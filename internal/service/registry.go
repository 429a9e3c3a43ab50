package service

import "sync"

type activeRun struct {
	runID string
	stop  func()
}

// runRegistry tracks the single run a Stop request should target. The most
// recently registered run owns the slot.
type runRegistry struct {
	mu   sync.Mutex
	slot *activeRun
}

// register claims the slot for runID and returns a channel that is closed
// when the run is asked to stop.
func (r *runRegistry) register(runID string) <-chan struct{} {
	ch := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(ch) }) }

	r.mu.Lock()
	r.slot = &activeRun{runID: runID, stop: stop}
	r.mu.Unlock()
	return ch
}

// release empties the slot if runID still holds it.
func (r *runRegistry) release(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot != nil && r.slot.runID == runID {
		r.slot = nil
	}
}

func (r *runRegistry) active() (activeRun, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == nil {
		return activeRun{}, false
	}
	return *r.slot, true
}
