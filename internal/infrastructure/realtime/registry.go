package realtime

import "sync"

// Registry maps a member identity to its set of live connections. It is a
// process-lifetime component built once at startup and torn down on shutdown.
// Add/Remove dominate the access pattern; CloseAll is rare and may be O(n).
type Registry struct {
	mu      sync.RWMutex
	members map[string]map[string]*Connection // memberID -> connectionID -> connection
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{members: make(map[string]map[string]*Connection)}
}

// Add tracks a live connection for its member.
func (r *Registry) Add(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.members[conn.MemberID]
	if set == nil {
		set = make(map[string]*Connection)
		r.members[conn.MemberID] = set
	}
	set[conn.ID] = conn
}

// Remove stops tracking a connection. Removing an untracked connection is a
// no-op, so Remove is safe to race with CloseAll.
func (r *Registry) Remove(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.members[conn.MemberID]
	if set == nil {
		return
	}
	delete(set, conn.ID)
	if len(set) == 0 {
		delete(r.members, conn.MemberID)
	}
}

// Count returns the number of live connections for one member.
func (r *Registry) Count(memberID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[memberID])
}

// Len returns the total number of tracked connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.members {
		n += len(set)
	}
	return n
}

// CloseAll forcibly terminates every live connection for the member with the
// given close code. Connections are snapshotted under the lock and closed
// outside it, so concurrent Add/Remove for the same member stay safe. Returns
// the number of connections closed.
func (r *Registry) CloseAll(memberID string, code int, reason string) int {
	r.mu.Lock()
	set := r.members[memberID]
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	delete(r.members, memberID)
	r.mu.Unlock()

	for _, c := range conns {
		c.Close(code, reason)
	}
	return len(conns)
}

// Shutdown closes every tracked connection with the going-away code.
func (r *Registry) Shutdown(code int, reason string) {
	r.mu.Lock()
	var conns []*Connection
	for _, set := range r.members {
		for _, c := range set {
			conns = append(conns, c)
		}
	}
	r.members = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		c.Close(code, reason)
	}
}
