// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"sort"
)

type empty struct{}

type HashSet[T comparable] map[T]empty

func (s HashSet[T]) Has(elem T) bool {
	_, ok := s[elem]
	return ok
}

func (s HashSet[T]) Add(elem T) {
	s[elem] = empty{}
}

func (s HashSet[T]) Remove(elem T) {
	delete(s, elem)
}

// SortedKeys returns the elements of a set of string-like values in order.
func SortedKeys[T ~string](s HashSet[T]) (result []T) {
	result = make([]T, 0, len(s))
	for elem := range s {
		result = append(result, elem)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return
}
