// Package morton interleaves tile columns and rows into a Z-order value.
// Read two bits at a time from the most significant end, a Z value is a quadkey:
// bit 0 of a digit comes from x, bit 1 from y.
package morton

import (
	"fmt"
	"math"
	"strings"
)

type Z = uint

// MaxQuadKeyLength is the number of base-4 digits that fit in a Z
const MaxQuadKeyLength = 32

var (
	masks = [...]uint{
		0b0101010101010101010101010101010101010101010101010101010101010101,
		0b0011001100110011001100110011001100110011001100110011001100110011,
		0b0000111100001111000011110000111100001111000011110000111100001111,
		0b0000000011111111000000001111111100000000111111110000000011111111,
		0b0000000000000000111111111111111100000000000000001111111111111111,
		0b0000000000000000000000000000000011111111111111111111111111111111,
	}
	powersOfTwo = [...]uint{0, 1, 2, 4, 8, 16}
)

func ToZ(x, y uint) (z Z, ok bool) {
	ok = x <= math.MaxUint32 && y <= math.MaxUint32
	for i := 4; i >= 0; i-- {
		x = (x | (x << powersOfTwo[i+1])) & masks[i]
		y = (y | (y << powersOfTwo[i+1])) & masks[i]
	}
	z = x | (y << 1)
	return z, ok
}

func MustToZ(x, y uint) Z {
	z, ok := ToZ(x, y)
	if !ok {
		panic(fmt.Errorf(`cannot make Z out of %v and %v`, x, y))
	}
	return z
}

func FromZ(z Z) (x, y uint) {
	x = z
	y = z >> 1
	for i := 0; i <= 5; i++ {
		x = (x | (x >> powersOfTwo[i])) & masks[i]
		y = (y | (y >> powersOfTwo[i])) & masks[i]
	}
	return x, y
}

// ToQuadKey writes the lowest level digits of z, most significant first.
// Higher bits are dropped.
func ToQuadKey(z Z, level uint) string {
	var sb strings.Builder
	sb.Grow(int(level))
	for i := level; i > 0; i-- {
		sb.WriteByte('0' + byte(Digit(z, i)))
	}
	return sb.String()
}

// Digit returns the quadrant (0, 1, 2 or 3) at depth i (1-based, counted from the least significant end)
func Digit(z Z, i uint) uint {
	return (z >> (2 * (i - 1))) & 0b11
}

// FromQuadKey parses base-4 digits into a Z.
// When ok is false, pos is the index of the first character that is not a digit 0-3.
func FromQuadKey(key string) (z Z, pos int, ok bool) {
	if len(key) > MaxQuadKeyLength {
		return 0, MaxQuadKeyLength, false
	}
	for i := 0; i < len(key); i++ {
		d := key[i]
		if d < '0' || d > '3' {
			return 0, i, false
		}
		z = z<<2 | Z(d-'0')
	}
	return z, -1, true
}
