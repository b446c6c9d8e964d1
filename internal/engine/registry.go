package engine

import "sync"

// registry records every outstanding identity together with the ticket it
// was admitted under. Tickets are monotonic, so a stale worker can always tell
// its claim apart from a later re-admission of the same identity.
type registry struct {
	mu      sync.Mutex
	entries map[string]uint64
	next    uint64
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]uint64)}
}

// add admits id. It returns false when id is already outstanding.
func (r *registry) add(id string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return 0, false
	}
	r.next++
	r.entries[id] = r.next
	return r.next, true
}

func (r *registry) holds(id string, ticket uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	return ok && t == ticket
}

// release drops id only if it is still held under ticket.
func (r *registry) release(id string, ticket uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.entries[id]; ok && t == ticket {
		delete(r.entries, id)
		return true
	}
	return false
}

// remove drops id unconditionally and returns the ticket it held.
func (r *registry) remove(id string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return t, ok
}

func (r *registry) clear() {
	r.mu.Lock()
	r.entries = make(map[string]uint64)
	r.mu.Unlock()
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
