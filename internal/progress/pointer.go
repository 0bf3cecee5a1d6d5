// Package progress holds the pure building blocks the playtime engines
// share: pointer triples over ordered sequences and score reduction over
// play logs.
package progress

import "riddlerush/internal/model"

// NoIndex stands for "no position" when calling At.
const NoIndex = -1

// Triple is the {previous, current, next} view of a position. An empty
// string means the neighbour (or the position itself) does not exist.
type Triple struct {
	Previous string
	Current  string
	Next     string
}

// Empty reports whether the triple points nowhere.
func (t Triple) Empty() bool {
	return t.Current == ""
}

// At returns the triple around index idx of items, using id to extract
// each item's identifier. Any idx outside [0, len(items)) yields an
// empty triple.
func At[T any](items []T, idx int, id func(T) string) Triple {
	if idx < 0 || idx >= len(items) {
		return Triple{}
	}
	t := Triple{Current: id(items[idx])}
	if idx > 0 {
		t.Previous = id(items[idx-1])
	}
	if idx < len(items)-1 {
		t.Next = id(items[idx+1])
	}
	return t
}

// RiddleAt is At specialized to riddle slots.
func RiddleAt(refs []model.RiddleRef, idx int) Triple {
	return At(refs, idx, func(r model.RiddleRef) string { return r.ID })
}

// UserAt is At specialized to a roster.
func UserAt(roster []model.RosterEntry, idx int) Triple {
	return At(roster, idx, func(e model.RosterEntry) string { return e.UserID })
}

// IndexOfRiddle returns the slot index holding id, or NoIndex.
func IndexOfRiddle(refs []model.RiddleRef, id string) int {
	if id == "" {
		return NoIndex
	}
	for i, r := range refs {
		if r.ID == id {
			return i
		}
	}
	return NoIndex
}

// IndexOfUser returns the roster slot holding userID, or NoIndex.
func IndexOfUser(roster []model.RosterEntry, userID string) int {
	if userID == "" {
		return NoIndex
	}
	for i, e := range roster {
		if e.UserID == userID {
			return i
		}
	}
	return NoIndex
}

// NextPending scans refs from index from (inclusive) for the first slot
// that is not done, returning NoIndex if there is none.
func NextPending(refs []model.RiddleRef, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(refs); i++ {
		if !refs[i].Done {
			return i
		}
	}
	return NoIndex
}
