package runner

import "sync"

// Guard is the in-process single-flight primitive: at most one run may be in
// flight per account prefix. It is owned by the orchestrator and injected
// where needed, never package-global. State is not persisted; a process
// restart forgets in-flight runs, which is safe because selection and
// used-set updates are append-only.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]bool
}

// NewGuard creates an empty run guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]bool)}
}

// TryAcquire marks the prefix as in flight. Returns false when a run already
// holds the guard.
func (g *Guard) TryAcquire(prefix string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight[prefix] {
		return false
	}
	g.inflight[prefix] = true
	return true
}

// Release frees the prefix for the next run.
func (g *Guard) Release(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, prefix)
}

// Running reports whether a run is currently in flight for the prefix.
func (g *Guard) Running(prefix string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[prefix]
}
