package server

import (
	"sort"
	"sync"
)

// Registry is the shared, thread-safe set of live sessions plus the set of
// claimed usernames. The two sets are guarded independently so broadcast
// fan-out over the session set never stalls a username claim.
//
// Invariant: a username appears in the claim set iff exactly one live,
// registered session holds it. Each operation is independently atomic;
// sequences such as claim-then-register are not atomic as a unit, and no
// caller depends on their joint atomicity.
type Registry struct {
	smu      sync.RWMutex
	sessions map[*Session]struct{}

	cmu     sync.Mutex
	claimed map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Session]struct{}),
		claimed:  make(map[string]struct{}),
	}
}

// TryClaim atomically reserves a username. Exactly one caller among
// concurrent racers for the same name succeeds.
func (r *Registry) TryClaim(username string) bool {
	r.cmu.Lock()
	defer r.cmu.Unlock()
	if _, taken := r.claimed[username]; taken {
		return false
	}
	r.claimed[username] = struct{}{}
	return true
}

// Release frees a username claim. Releasing an unclaimed name is a no-op.
func (r *Registry) Release(username string) {
	r.cmu.Lock()
	defer r.cmu.Unlock()
	delete(r.claimed, username)
}

// Add inserts a session into the live set. Sessions are added at accept
// time, before authentication completes.
func (r *Registry) Add(s *Session) {
	r.smu.Lock()
	defer r.smu.Unlock()
	r.sessions[s] = struct{}{}
}

// Remove deletes a session from the live set. Idempotent.
func (r *Registry) Remove(s *Session) {
	r.smu.Lock()
	defer r.smu.Unlock()
	delete(r.sessions, s)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.smu.RLock()
	defer r.smu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a copy of the live session set for fan-out. The copy is
// consistent enough for best-effort delivery: it includes every session
// added before the call returns and excludes any fully removed before the
// call starts.
func (r *Registry) Snapshot() []*Session {
	r.smu.RLock()
	defer r.smu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Usernames returns the currently claimed usernames in sorted order.
func (r *Registry) Usernames() []string {
	r.cmu.Lock()
	names := make([]string, 0, len(r.claimed))
	for name := range r.claimed {
		names = append(names, name)
	}
	r.cmu.Unlock()
	sort.Strings(names)
	return names
}
