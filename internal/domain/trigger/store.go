package trigger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gwdetchar/hveto/internal/domain/segment"
)

// ErrChannelCollision is returned when an auxiliary channel name matches the
// primary channel designation.
var ErrChannelCollision = errors.New("auxiliary channel collides with primary channel")

// Store owns the primary trigger set and every auxiliary channel's set for
// the lifetime of one run. It is populated once before round 1 and is only
// mutated by Prune; no trigger is ever re-inserted.
type Store struct {
	// primary is the trigger set being vetoed.
	primary *Set
	// aux maps channel name to that channel's trigger set.
	aux map[string]*Set
	// channels caches the sorted auxiliary channel names for deterministic
	// iteration order.
	channels []string
}

// NewStore validates all input sequences and assembles a Store.
// Auxiliary channel names must be unique (enforced by the map input) and must
// not collide with the primary channel name.
func NewStore(primaryChannel string, primary []Trigger, aux map[string][]Trigger) (*Store, error) {
	primarySet, err := NewSet(primaryChannel, primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	store := &Store{
		primary:  primarySet,
		aux:      make(map[string]*Set, len(aux)),
		channels: make([]string, 0, len(aux)),
	}

	for name, events := range aux {
		if name == primaryChannel {
			return nil, fmt.Errorf("%w: %s", ErrChannelCollision, name)
		}

		set, err := NewSet(name, events)
		if err != nil {
			return nil, fmt.Errorf("auxiliary: %w", err)
		}

		store.aux[name] = set
		store.channels = append(store.channels, name)
	}

	sort.Strings(store.channels)

	return store, nil
}

// Primary returns the primary trigger set.
func (st *Store) Primary() *Set {
	return st.primary
}

// Channels returns the auxiliary channel names in lexicographic order.
// Callers must not modify the returned slice.
func (st *Store) Channels() []string {
	return st.channels
}

// Aux returns the named auxiliary set, or nil when unknown.
func (st *Store) Aux(name string) *Set {
	return st.aux[name]
}

// PruneCounts records one set's population before and after a prune pass.
type PruneCounts struct {
	// Before is the trigger count prior to pruning.
	Before int
	// After is the trigger count remaining after pruning.
	After int
}

// Prune removes, from the primary set and from every auxiliary set, all
// triggers lying inside the provided segments. Once a time interval is
// vetoed no channel may use triggers inside it in any later round, so the
// winning channel is pruned like every other.
func (st *Store) Prune(segs segment.List) map[string]PruneCounts {
	counts := make(map[string]PruneCounts, len(st.aux)+1)

	before := st.primary.Len()
	st.primary.prune(segs)
	counts[st.primary.Name()] = PruneCounts{Before: before, After: st.primary.Len()}

	for _, name := range st.channels {
		set := st.aux[name]
		before = set.Len()
		set.prune(segs)
		counts[name] = PruneCounts{Before: before, After: set.Len()}
	}

	return counts
}

// Restrict removes, from the primary set and from every auxiliary set, all
// triggers lying outside the half-open analysis span, and returns the total
// number of removed events. Triggers outside the span carry no live time and
// cannot produce veto segments, so they are dropped before round 1.
func (st *Store) Restrict(span segment.Segment) int {
	removed := st.primary.restrict(span)

	for _, name := range st.channels {
		removed += st.aux[name].restrict(span)
	}

	return removed
}

// Clone returns a deep copy of the store so one input can drive several
// independent runs.
func (st *Store) Clone() *Store {
	cloned := &Store{
		primary:  st.primary.clone(),
		aux:      make(map[string]*Set, len(st.aux)),
		channels: make([]string, len(st.channels)),
	}

	copy(cloned.channels, st.channels)

	for name, set := range st.aux {
		cloned.aux[name] = set.clone()
	}

	return cloned
}
