package app

import (
	"cmp"
	"slices"
	"time"
)

// sortKey is one (key, direction) step of a multi-key ordering. Keys are
// applied in order; each only breaks ties left by the previous ones.
type sortKey[T any] struct {
	cmp  func(a, b T) int
	desc bool
}

func asc[T any](f func(a, b T) int) sortKey[T]  { return sortKey[T]{cmp: f} }
func desc[T any](f func(a, b T) int) sortKey[T] { return sortKey[T]{cmp: f, desc: true} }

func byInt[T any](get func(T) int) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(get(a), get(b)) }
}

func byString[T any](get func(T) string) func(a, b T) int {
	return func(a, b T) int { return cmp.Compare(get(a), get(b)) }
}

func byTime[T any](get func(T) time.Time) func(a, b T) int {
	return func(a, b T) int { return get(a).Compare(get(b)) }
}

// sortByKeys stable-sorts items in place by keys.
func sortByKeys[T any](items []T, keys []sortKey[T]) {
	slices.SortStableFunc(items, func(a, b T) int {
		for _, k := range keys {
			c := k.cmp(a, b)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}
