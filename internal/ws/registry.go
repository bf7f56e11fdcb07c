package ws

import "sync"

// Registry is the thread-safe set of live connections. The accept loop,
// every receive loop and the broadcaster all reach the set exclusively
// through these methods.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers a freshly accepted, not-yet-upgraded connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
}

// Remove drops the connection and closes its transport. Safe to call more
// than once for the same id; the receive loop invokes it after it has
// returned from its last read (close-after-return).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if ok {
		_ = c.netConn.Close()
	}
}

// MarkUpgraded flips the connection's upgraded flag after a successful
// handshake. The flag flips at most once per connection lifetime.
func (r *Registry) MarkUpgraded(id string) {
	r.mu.Lock()
	if c, ok := r.conns[id]; ok {
		c.upgraded = true
	}
	r.mu.Unlock()
}

// SnapshotUpgraded returns the current upgraded connections. Broadcast
// fan-out iterates the returned slice, never the live map.
func (r *Registry) SnapshotUpgraded() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		if c.upgraded {
			out = append(out, c)
		}
	}
	return out
}

// UpgradedCount reports how many connections completed the handshake.
func (r *Registry) UpgradedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.conns {
		if c.upgraded {
			n++
		}
	}
	return n
}

// Len reports the total connection count, upgraded or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll removes and closes every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Conn)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.netConn.Close()
	}
}
