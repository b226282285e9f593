// Package reconcile keeps locally displayed category and tag bookmark counts
// in step with bookmark mutations made during a session, without re-running
// the aggregate count query after every change.
//
// A Reconciler is the notifier side: the code that performed a mutation tells
// it what changed. Views holding counts subscribe to it and receive one Event
// per adjustment, synchronously and in subscription order. The storage layer
// stays authoritative; views reseed from it on every full load.
package reconcile

import (
	"slices"
	"sync"

	"github.com/nikbrunner/stash/internal/model"
)

// Kind identifies which sidebar list an event targets.
type Kind int

const (
	KindCategory Kind = iota
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Sign is the direction of a count adjustment.
type Sign int

const (
	Decrement Sign = -1
	Increment Sign = 1
)

// Op is the kind of change an Event describes.
type Op int

const (
	OpDelta  Op = iota // adjust the count of ID by Sign
	OpAdd              // insert ID with Name and a zero count
	OpRename           // change the Name of ID
	OpRemove           // drop ID from the list
	OpReseed           // discard local state and reload from storage
)

func (o Op) String() string {
	switch o {
	case OpDelta:
		return "delta"
	case OpAdd:
		return "add"
	case OpRename:
		return "rename"
	case OpRemove:
		return "remove"
	case OpReseed:
		return "reseed"
	default:
		return "unknown"
	}
}

// Event is a single fire-and-forget notification. It is never persisted.
type Event struct {
	Op   Op
	Kind Kind
	ID   string
	Name string // OpAdd and OpRename only
	Sign Sign   // OpDelta only
}

// Listener receives events. It must not call back into the Reconciler that
// invoked it.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// Reconciler fans mutation notifications out to subscribed listeners.
// The zero value is ready to use.
type Reconciler struct {
	emitMu sync.Mutex // serializes emissions so paired deltas never interleave

	mu        sync.Mutex
	nextID    uint64
	listeners []subscription
}

// New creates a Reconciler with no listeners.
func New() *Reconciler {
	return &Reconciler{}
}

// Subscribe registers fn and returns the func that removes it again.
// Calling the returned func more than once is harmless.
func (r *Reconciler) Subscribe(fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, subscription{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Reconciler) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = slices.DeleteFunc(r.listeners, func(s subscription) bool {
		return s.id == id
	})
}

// Listeners returns the number of currently subscribed listeners.
func (r *Reconciler) Listeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// BookmarkCreated emits +1 for the bookmark's category, if any, and +1 for
// each of its tags.
func (r *Reconciler) BookmarkCreated(b model.Bookmark) {
	var events []Event
	if b.CategoryID != nil {
		events = append(events, delta(KindCategory, *b.CategoryID, Increment))
	}
	for _, id := range uniqueIDs(b.TagIDs) {
		events = append(events, delta(KindTag, id, Increment))
	}
	r.emit(events...)
}

// BookmarkDeleted emits -1 for the bookmark's category, if any, and -1 for
// each of its tags.
func (r *Reconciler) BookmarkDeleted(b model.Bookmark) {
	var events []Event
	if b.CategoryID != nil {
		events = append(events, delta(KindCategory, *b.CategoryID, Decrement))
	}
	for _, id := range uniqueIDs(b.TagIDs) {
		events = append(events, delta(KindTag, id, Decrement))
	}
	r.emit(events...)
}

// CategoryChanged emits -1 for oldID then +1 for newID. Either may be nil.
// Nothing is emitted when both refer to the same category.
func (r *Reconciler) CategoryChanged(oldID, newID *string) {
	if model.SameID(oldID, newID) {
		return
	}

	var events []Event
	if oldID != nil {
		events = append(events, delta(KindCategory, *oldID, Decrement))
	}
	if newID != nil {
		events = append(events, delta(KindCategory, *newID, Increment))
	}
	r.emit(events...)
}

// TagsChanged emits -1 for every tag only in oldIDs, then +1 for every tag
// only in newIDs. Tags present in both are untouched.
func (r *Reconciler) TagsChanged(oldIDs, newIDs []string) {
	oldIDs = uniqueIDs(oldIDs)
	newIDs = uniqueIDs(newIDs)

	var events []Event
	for _, id := range oldIDs {
		if !slices.Contains(newIDs, id) {
			events = append(events, delta(KindTag, id, Decrement))
		}
	}
	for _, id := range newIDs {
		if !slices.Contains(oldIDs, id) {
			events = append(events, delta(KindTag, id, Increment))
		}
	}
	r.emit(events...)
}

// EntryAdded announces a new category or tag, which starts with no bookmarks.
func (r *Reconciler) EntryAdded(kind Kind, id, name string) {
	r.emit(Event{Op: OpAdd, Kind: kind, ID: id, Name: name})
}

// EntryRenamed announces a renamed category or tag.
func (r *Reconciler) EntryRenamed(kind Kind, id, name string) {
	r.emit(Event{Op: OpRename, Kind: kind, ID: id, Name: name})
}

// EntryRemoved announces a deleted category or tag.
func (r *Reconciler) EntryRemoved(kind Kind, id string) {
	r.emit(Event{Op: OpRemove, Kind: kind, ID: id})
}

// Reseed tells every listener to drop its local counts and reload them from
// storage. Used after bulk changes such as imports.
func (r *Reconciler) Reseed() {
	r.emit(Event{Op: OpReseed})
}

// emit delivers each event to every listener, in order, before returning.
func (r *Reconciler) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	for _, e := range events {
		for _, l := range listeners {
			l.fn(e)
		}
	}
}

func delta(kind Kind, id string, sign Sign) Event {
	return Event{Op: OpDelta, Kind: kind, ID: id, Sign: sign}
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
