package util

import (
	"cmp"

	"golang.org/x/exp/slices"
)

func InPlaceFilter[T any](s *[]T, p func(T) bool) {
	i := 0
	for _, e := range *s {
		if p(e) {
			(*s)[i] = e
			i++
		}
	}
	*s = (*s)[:i]
}

// CommonElementPercentage is the share of b's elements that also appear in a
func CommonElementPercentage[T comparable](a []T, b []T) float64 {
	if len(b) == 0 {
		return 0
	}

	set := make(map[T]bool, len(a))
	for _, e := range a {
		set[e] = true
	}

	common := 0
	for _, e := range b {
		if set[e] {
			common++
		}
	}

	return float64(common) / float64(len(b))
}

func IndexOf[T comparable](s []T, v T) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return -1
}

// SortedKeys returns the keys of m in ascending order
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
