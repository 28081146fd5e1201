package sat

// watchClass selects one of the two disjoint propagation classes: the
// backward elaborator processes marked (known-needed) clauses before
// unmarked ones so that extracted hints reference marked clauses
// whenever possible.
type watchClass int

const (
	classUnmarked watchClass = 0
	classMarked   watchClass = 1
)

func classOf(marked bool) watchClass {
	if marked {
		return classMarked
	}
	return classUnmarked
}

// watchIndex holds, for each literal and each watch class, the set of
// clause handles currently watching that literal in position 0 or 1 of
// their literal array.
//
// Lists are kept as slices rather than sets: a clause is only ever
// added/removed by its own Insert/Remove/moveClass call, so duplicate
// entries cannot arise, and linear removal by handle is cheap -- a
// slice of handles avoids the allocation overhead of a nested map per
// literal.
type watchIndex struct {
	lists [2]map[Literal][]handle
}

func newWatchIndex() *watchIndex {
	return &watchIndex{
		lists: [2]map[Literal][]handle{
			classUnmarked: make(map[Literal][]handle),
			classMarked:   make(map[Literal][]handle),
		},
	}
}

func (w *watchIndex) add(class watchClass, l Literal, h handle) {
	w.lists[class][l] = append(w.lists[class][l], h)
}

func (w *watchIndex) remove(class watchClass, l Literal, h handle) {
	lst := w.lists[class][l]
	for i, x := range lst {
		if x == h {
			lst[i] = lst[len(lst)-1]
			w.lists[class][l] = lst[:len(lst)-1]
			return
		}
	}
	panic("sat: watch: literal not watched by clause")
}

// watchers returns the (possibly nil) list of handles watching l in the
// given class. Callers must not retain the slice across a propagation
// step that might mutate watch lists for l; copy it first if needed.
func (w *watchIndex) watchers(class watchClass, l Literal) []handle {
	return w.lists[class][l]
}

// moveClass relocates both watches of a clause from one class to the
// other, used when the backward elaborator promotes a clause from
// unmarked to marked.
func (w *watchIndex) moveClass(from, to watchClass, l0, l1 Literal, h handle) {
	w.remove(from, l0, h)
	w.remove(from, l1, h)
	w.add(to, l0, h)
	w.add(to, l1, h)
}

// takeAndClear removes and returns the entire watch list for (class, l),
// leaving an empty list in its place. The propagation loop uses this to
// snapshot the list before rebuilding it clause by clause, the same
// snapshot-then-rebuild idiom a watch-list scan needs whenever clauses
// can move between watched literals mid-scan.
func (w *watchIndex) takeAndClear(class watchClass, l Literal) []handle {
	lst := w.lists[class][l]
	if len(lst) == 0 {
		return nil
	}
	snapshot := append([]handle(nil), lst...)
	w.lists[class][l] = lst[:0]
	return snapshot
}
