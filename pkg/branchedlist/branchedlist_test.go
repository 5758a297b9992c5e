package branchedlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func build(branchID int, keys ...string) *BranchedList[string, string] {
	list := New[string, string](branchID, nil)
	for _, key := range keys {
		list.Add(key, key)
	}
	return list
}

func keys(list *BranchedList[string, string]) []string {
	var result []string
	for _, entry := range list.Entries() {
		result = append(result, entry.Key)
	}
	return result
}

func TestMergeWithSelf(t *testing.T) {
	list := build(0, "A", "B", "C")
	list.Merge(build(0, "A", "B", "C"))

	assert.Equal(t, []string{"A", "B", "C"}, keys(list))
	for _, entry := range list.Entries() {
		assert.Equal(t, []int{0}, entry.BranchIDs)
	}
}

func TestMergeIntoEmpty(t *testing.T) {
	list := build(0)
	list.Merge(build(1, "A", "B"))

	assert.Equal(t, []string{"A", "B"}, keys(list))
	assert.Equal(t, []int{1}, list.Entries()[0].BranchIDs)
}

func TestMergeBranchInMiddle(t *testing.T) {
	list := build(0, "A", "B", "C", "D")
	list.Merge(build(1, "A", "X", "D"))

	assert.Equal(t, []string{"A", "B", "C", "X", "D"}, keys(list))

	entries := list.Entries()
	assert.Equal(t, []int{0, 1}, entries[0].BranchIDs)
	assert.Equal(t, []int{0}, entries[1].BranchIDs)
	assert.Equal(t, []int{1}, entries[3].BranchIDs)
	assert.Equal(t, []int{0, 1}, entries[4].BranchIDs)
}

func TestMergeExtension(t *testing.T) {
	list := build(0, "A", "B")
	list.Merge(build(1, "Z", "A", "B", "C"))

	assert.Equal(t, []string{"Z", "A", "B", "C"}, keys(list))
	assert.Equal(t, []int{0, 1}, list.Entries()[2].BranchIDs)
	assert.Equal(t, []int{1}, list.Entries()[3].BranchIDs)
}

func TestMergeDisjointAppends(t *testing.T) {
	list := build(0, "A", "B")
	list.Merge(build(1, "C", "D"))

	assert.Equal(t, []string{"A", "B", "C", "D"}, keys(list))
}

func TestMergePreservesBranchOrder(t *testing.T) {
	list := build(0, "A", "B", "C", "E")
	other := build(1, "A", "C", "D", "E")
	list.Merge(other)

	result := keys(list)
	for _, branch := range [][]string{{"A", "B", "C", "E"}, {"A", "C", "D", "E"}} {
		last := -1
		for _, key := range branch {
			index := indexOf(result, key)
			assert.Greater(t, index, last, "branch order broken for %s in %v", key, result)
			last = index
		}
	}
}

func TestConflictResolve(t *testing.T) {
	list := New[string, int](0, func(existing int, incoming int) int { return min(existing, incoming) })
	list.Add("A", 5)
	other := New[string, int](1, nil)
	other.Add("A", 2)

	list.Merge(other)
	assert.Equal(t, []int{2}, list.Values())
}

func indexOf(s []string, v string) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}
