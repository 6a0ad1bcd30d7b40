package detection

import "sync"

// State holds the latest detection set. Every Replace swaps in a complete
// snapshot; nothing is merged.
type State struct {
	mu      sync.RWMutex
	set     Set
	version uint64
}

// Replace stores set as the current snapshot and returns the previous one.
func (st *State) Replace(set Set) (prev Set) {
	cp := make(Set, len(set))
	copy(cp, set)

	st.mu.Lock()
	defer st.mu.Unlock()
	prev = st.set
	st.set = cp
	st.version++
	return prev
}

// Clear empties the snapshot.
func (st *State) Clear() {
	st.Replace(nil)
}

// Snapshot returns a copy of the current set.
func (st *State) Snapshot() Set {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(Set, len(st.set))
	copy(out, st.set)
	return out
}

// Len returns the number of faces in the current set.
func (st *State) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.set)
}

// Version increases on every Replace.
func (st *State) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}
