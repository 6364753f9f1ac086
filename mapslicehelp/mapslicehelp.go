package mapslicehelp

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Unique drops repeated elements, keeping the first occurrence of each in place
func Unique[T comparable](elements []T) []T {
	seen := orderedmap.New[T, struct{}]()
	for _, element := range elements {
		seen.Set(element, struct{}{})
	}
	return OrderedMapKeys(seen)
}

func OrderedMapKeys[K comparable, V any](m *orderedmap.OrderedMap[K, V]) []K {
	l := make([]K, m.Len())
	i := 0
	for p := m.Oldest(); p != nil; p = p.Next() {
		l[i] = p.Key
		i++
	}
	return l
}

func MapSlice[T, U any](elements []T, f func(T) U) []U {
	mapped := make([]U, len(elements))
	for i := range elements {
		mapped[i] = f(elements[i])
	}
	return mapped
}
