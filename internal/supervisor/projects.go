package supervisor

import "sync"

// Projects is the in-memory per-project mutual exclusion set with a bound on
// how many projects may run at once. Size check and insert are one critical
// section.
type Projects struct {
	mu     sync.Mutex
	max    int
	active map[string]struct{}
}

// NewProjects creates a set bounded at max concurrently active projects.
func NewProjects(max int) *Projects {
	if max <= 0 {
		max = 1
	}
	return &Projects{
		max:    max,
		active: make(map[string]struct{}),
	}
}

// TryMarkActive inserts a project into the active set. Returns false when
// the project is already active or the pool is full.
func (p *Projects) TryMarkActive(project string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[project]; ok {
		return false
	}
	if len(p.active) >= p.max {
		return false
	}
	p.active[project] = struct{}{}
	return true
}

// MarkIdle removes a project from the active set.
func (p *Projects) MarkIdle(project string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, project)
}

// Busy reports whether a project currently has a live runner.
func (p *Projects) Busy(project string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[project]
	return ok
}

// Count returns the number of active projects.
func (p *Projects) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
