package reconcile

import (
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// Snapshot is the rendered state of a sidebar.
type Snapshot struct {
	Categories []Entry `json:"categories"`
	Tags       []Entry `json:"tags"`
}

// LoadFunc runs the aggregate count queries for a sidebar.
type LoadFunc func() (Snapshot, error)

// Sidebar is one mounted view of category and tag counts.
type Sidebar struct {
	categories *Counts
	tags       *Counts
	load       LoadFunc

	mu       sync.Mutex
	onChange func(Snapshot)
	unmount  func()
}

// NewSidebar creates a sidebar from server-computed counts. load is used to
// reseed; it may be nil, in which case reseed events are ignored.
func NewSidebar(seed Snapshot, load LoadFunc) *Sidebar {
	return &Sidebar{
		categories: NewCounts(KindCategory, seed.Categories),
		tags:       NewCounts(KindTag, seed.Tags),
		load:       load,
	}
}

// Categories returns the category list.
func (s *Sidebar) Categories() *Counts { return s.categories }

// Tags returns the tag list.
func (s *Sidebar) Tags() *Counts { return s.tags }

// OnChange sets the callback invoked with a fresh snapshot after every
// event that changed the sidebar. It runs on the notifying goroutine.
func (s *Sidebar) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Mount subscribes the sidebar to r and returns the unmount func.
// A sidebar is mounted at most once; mounting again replaces the previous
// subscription.
func (s *Sidebar) Mount(r *Reconciler) (unmount func()) {
	return s.attach(r.Subscribe(s.Handle))
}

func (s *Sidebar) attach(unsubscribe func()) func() {
	s.mu.Lock()
	previous := s.unmount
	s.unmount = unsubscribe
	s.mu.Unlock()

	if previous != nil {
		previous()
	}
	return s.Unmount
}

// Unmount stops receiving events. Safe to call when not mounted.
func (s *Sidebar) Unmount() {
	s.mu.Lock()
	unsubscribe := s.unmount
	s.unmount = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Handle applies one event. It is the Listener a mounted sidebar registers.
func (s *Sidebar) Handle(e Event) {
	var changed bool

	if e.Op == OpReseed {
		changed = s.reseed()
	} else {
		c := s.categories.Apply(e)
		t := s.tags.Apply(e)
		changed = c || t
	}

	if !changed {
		return
	}

	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(s.Snapshot())
	}
}

// Reseed replaces both lists with server-computed counts.
func (s *Sidebar) Reseed(seed Snapshot) {
	s.categories.Reseed(seed.Categories)
	s.tags.Reseed(seed.Tags)
}

func (s *Sidebar) reseed() bool {
	if s.load == nil {
		return false
	}

	seed, err := s.load()
	if err != nil {
		zlog.Warn().Err(err).Msg("Sidebar reseed failed, keeping local counts")
		return false
	}

	s.Reseed(seed)
	return true
}

// Snapshot returns copies of both lists.
func (s *Sidebar) Snapshot() Snapshot {
	return Snapshot{
		Categories: s.categories.Snapshot(),
		Tags:       s.tags.Snapshot(),
	}
}
