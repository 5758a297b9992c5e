// Package branchedlist merges the ordered stop lists of several route branches into one list,
// keeping every branch's own order and tagging each element with the branches that contain it.
package branchedlist

import (
	"golang.org/x/exp/slices"
)

type Entry[K comparable, V any] struct {
	Key       K
	Value     V
	BranchIDs []int
}

func (e Entry[K, V]) withBranch(value V, branchID int) Entry[K, V] {
	branchIDs := slices.Clone(e.BranchIDs)
	if !slices.Contains(branchIDs, branchID) {
		branchIDs = append(branchIDs, branchID)
		slices.Sort(branchIDs)
	}
	return Entry[K, V]{Key: e.Key, Value: value, BranchIDs: branchIDs}
}

type BranchedList[K comparable, V any] struct {
	BranchID        int
	ConflictResolve func(existing V, incoming V) V

	entries []Entry[K, V]
}

// New creates an empty list for one branch. A nil resolver keeps the existing value on conflicts.
func New[K comparable, V any](branchID int, conflictResolve func(V, V) V) *BranchedList[K, V] {
	if conflictResolve == nil {
		conflictResolve = func(existing V, _ V) V { return existing }
	}
	return &BranchedList[K, V]{BranchID: branchID, ConflictResolve: conflictResolve}
}

func (l *BranchedList[K, V]) Add(key K, value V) {
	l.entries = append(l.entries, Entry[K, V]{Key: key, Value: value, BranchIDs: []int{l.BranchID}})
}

func (l *BranchedList[K, V]) Len() int {
	return len(l.entries)
}

func (l *BranchedList[K, V]) Entries() []Entry[K, V] {
	return slices.Clone(l.entries)
}

func (l *BranchedList[K, V]) Values() []V {
	values := make([]V, len(l.entries))
	for i, entry := range l.entries {
		values[i] = entry.Value
	}
	return values
}

// Merge folds other into l. Entries sharing a key are joined, other's entries before a join point
// are inserted ahead of it, and the rest of other is merged after it.
func (l *BranchedList[K, V]) Merge(other *BranchedList[K, V]) {
	l.merge(other.entries, other.BranchID, 0, false)
}

func (l *BranchedList[K, V]) keyIndexOf(key K, from int) int {
	for i := from; i < len(l.entries); i++ {
		if l.entries[i].Key == key {
			return i
		}
	}
	return -1
}

func (l *BranchedList[K, V]) match(other []Entry[K, V], searchFrom int) (int, int, bool) {
	for otherIndex, entry := range other {
		if selfIndex := l.keyIndexOf(entry.Key, searchFrom); selfIndex >= 0 {
			return selfIndex, otherIndex, true
		}
	}
	return -1, -1, false
}

func (l *BranchedList[K, V]) insertAt(index int, entries []Entry[K, V]) {
	l.entries = slices.Insert(l.entries, index, slices.Clone(entries)...)
}

func (l *BranchedList[K, V]) merge(other []Entry[K, V], otherBranchID int, searchFrom int, addToFrontIfNotFound bool) {
	for len(other) > 0 {
		if len(l.entries) == 0 {
			l.entries = slices.Clone(other)
			return
		}

		selfIndex, otherIndex, found := l.match(other, searchFrom)
		if !found {
			if addToFrontIfNotFound {
				l.insertAt(searchFrom, other)
			} else {
				l.entries = append(l.entries, slices.Clone(other)...)
			}
			return
		}

		existing := l.entries[selfIndex]
		l.entries[selfIndex] = existing.withBranch(l.ConflictResolve(existing.Value, other[otherIndex].Value), otherBranchID)
		l.insertAt(selfIndex, other[:otherIndex])

		// the joined entry moved past the inserted prefix
		searchFrom = selfIndex + otherIndex + 1
		addToFrontIfNotFound = true
		other = other[otherIndex+1:]
	}
}
