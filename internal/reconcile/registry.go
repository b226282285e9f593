package reconcile

import "sync"

// Registry owns one Reconciler per user. Only users with at least one
// mounted listener have an entry.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]*Reconciler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Reconciler)}
}

// For returns the reconciler for userID. When nothing is mounted for the
// user, an idle reconciler is returned and its notifications go nowhere.
func (g *Registry) For(userID string) *Reconciler {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.byUser[userID]; ok {
		return r
	}
	return New()
}

// Mount subscribes s to the reconciler of userID, creating it if needed.
// The returned func unmounts s and forgets the reconciler once its last
// listener is gone.
func (g *Registry) Mount(userID string, s *Sidebar) (unmount func()) {
	g.mu.Lock()
	r, ok := g.byUser[userID]
	if !ok {
		r = New()
		g.byUser[userID] = r
	}
	unsubscribe := r.Subscribe(s.Handle)
	g.mu.Unlock()

	return s.attach(func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		unsubscribe()
		if r.Listeners() == 0 && g.byUser[userID] == r {
			delete(g.byUser, userID)
		}
	})
}

// Len returns the number of users with a live reconciler.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byUser)
}
