package mathhelp

import (
	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

func Pow2(n uint) uint {
	return 1 << n
}

// Clip clamps n to [minValue, maxValue]
func Clip[T Number](n, minValue, maxValue T) T {
	if n < minValue {
		return minValue
	}
	if n > maxValue {
		return maxValue
	}
	return n
}

func Abs[T constraints.Signed | constraints.Float](n T) T {
	if n < 0 {
		return -n
	}
	return n
}
