// Package quadkey addresses map tiles with a single base-4 string.
// Each digit picks one of the four quadrants of the tile named by the digits before it:
//
//	|-------|
//	| 0 | 1 |
//	|-------|
//	| 2 | 3 |
//	|-------|
//
// So the length of a quadkey is its level (zoom) and a quadkey is an ancestor of every quadkey it prefixes.
package quadkey

import (
	"fmt"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
	"github.com/pdok/quadkey/mapslicehelp"
	"github.com/pdok/quadkey/mathhelp"
	"github.com/pdok/quadkey/morton"
	"github.com/pdok/quadkey/tilesystem"
)

const (
	MinLevel = tilesystem.MinLevel
	MaxLevel = tilesystem.MaxLevel
)

var tileSystem = tilesystem.WebMercator{}

// neighbour offsets (dx, dy), in the order they are visited by Nearby
var nearbyOffsets = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

// QuadKey is an immutable, validated quadkey. Compare with ==.
// The zero value is not a valid quadkey.
type QuadKey struct {
	key string
}

// Validate checks that key has 1 to MaxLevel digits, all of them 0, 1, 2 or 3
func Validate(key string) error {
	if len(key) == 0 {
		return &InvalidKeyError{Key: key, Reason: "empty"}
	}
	if uint(len(key)) > MaxLevel {
		return &InvalidKeyError{Key: key, Reason: fmt.Sprintf("longer than %d digits", MaxLevel)}
	}
	if _, pos, ok := morton.FromQuadKey(key); !ok {
		return &InvalidKeyError{Key: key, Reason: fmt.Sprintf("invalid digit %q at position %d", key[pos], pos)}
	}
	return nil
}

func New(key string) (QuadKey, error) {
	if err := Validate(key); err != nil {
		return QuadKey{}, err
	}
	return QuadKey{key: key}, nil
}

func MustNew(key string) QuadKey {
	q, err := New(key)
	if err != nil {
		panic(err)
	}
	return q
}

// FromGeo returns the quadkey of the tile at level that contains lat/lon.
// Coordinates outside the Web Mercator domain are clipped, a level outside [MinLevel, MaxLevel] panics.
func FromGeo(lat, lon float64, level uint) QuadKey {
	if level < MinLevel || level > MaxLevel {
		panic(&ContractViolation{
			Op:     "FromGeo",
			Detail: fmt.Sprintf("level %d outside [%d, %d]", level, MinLevel, MaxLevel),
		})
	}
	pixel := tileSystem.GeoToPixel(lat, lon, level)
	tile := tileSystem.PixelToTile(pixel, level)
	return QuadKey{key: tileSystem.TileToQuadKey(tile)}
}

// FromTile returns the quadkey of a tile inside the grid of its level (tile.Z)
func FromTile(tile *slippy.Tile) (QuadKey, error) {
	if tile.Z < MinLevel || tile.Z > MaxLevel {
		return QuadKey{}, fmt.Errorf("%w: level %d outside [%d, %d]", ErrTileOutOfRange, tile.Z, MinLevel, MaxLevel)
	}
	size := mathhelp.Pow2(tile.Z)
	if tile.X >= size || tile.Y >= size {
		return QuadKey{}, fmt.Errorf("%w: %d/%d/%d outside grid of %dx%d", ErrTileOutOfRange, tile.Z, tile.X, tile.Y, size, size)
	}
	return QuadKey{key: tileSystem.TileToQuadKey(tile)}, nil
}

// String returns the digits of q
func (q QuadKey) String() string {
	return q.key
}

func (q QuadKey) Level() uint {
	return uint(len(q.key))
}

// Children returns the four quadrants in the order 0, 1, 2, 3.
// Nothing at MaxLevel.
func (q QuadKey) Children() []QuadKey {
	if q.Level() >= MaxLevel {
		return nil
	}
	children := make([]QuadKey, 4)
	for i := range children {
		children[i] = QuadKey{key: q.key + string(rune('0'+i))}
	}
	return children
}

// Parent drops the last digit. A level 1 quadkey has no parent and gives ErrInvalidKey.
func (q QuadKey) Parent() (QuadKey, error) {
	if q.Level() <= MinLevel {
		return QuadKey{}, &InvalidKeyError{Key: q.key, Reason: fmt.Sprintf("level %d quadkey has no parent", q.Level())}
	}
	return QuadKey{key: q.key[:len(q.key)-1]}, nil
}

// IsAncestor reports whether other lies inside q (q is a strict prefix of other),
// and if so how many levels deeper other is.
func (q QuadKey) IsAncestor(other QuadKey) (int, bool) {
	if q.Level() >= other.Level() || !strings.HasPrefix(other.key, q.key) {
		return 0, false
	}
	return int(other.Level() - q.Level()), true
}

// IsDescendant reports whether q lies inside other, and if so how many levels deeper q is
func (q QuadKey) IsDescendant(other QuadKey) (int, bool) {
	return other.IsAncestor(q)
}

// Nearby returns the (up to 8) tiles around q, without duplicates, in the order of nearbyOffsets.
//
// Neighbours are not wrapped around the grid: a negative column or row is mirrored (abs),
// and a column or row just past the grid ends up in column or row 0 (see tilesystem TileToQuadKey).
// So at the edges of the map fewer than 8 tiles are returned, some of them not adjacent to q.
func (q QuadKey) Nearby() []QuadKey {
	tile := q.Tile()
	nearby := make([]QuadKey, 0, len(nearbyOffsets))
	for _, offset := range nearbyOffsets {
		neighbour := slippy.NewTile(
			tile.Z,
			uint(mathhelp.Abs(int(tile.X)+offset[0])),
			uint(mathhelp.Abs(int(tile.Y)+offset[1])),
		)
		nearby = append(nearby, QuadKey{key: tileSystem.TileToQuadKey(neighbour)})
	}
	return mapslicehelp.Unique(nearby)
}

// Area approximates the ground area of the tile in square meters.
// The ground resolution is always taken at the equator, whatever the latitude of the tile.
func (q QuadKey) Area() float64 {
	level := q.Level()
	tilePixels := tileSystem.MapSize(level) / mathhelp.Pow2(level)
	side := float64(tilePixels) * tileSystem.GroundResolution(0, level)
	return side * side
}

// Tile returns the column and row of q at its level
func (q QuadKey) Tile() *slippy.Tile {
	tile, err := tileSystem.QuadKeyToTile(q.key)
	if err != nil {
		// keys are validated on construction
		panic(fmt.Errorf(`cannot make a tile out of quadkey "%v": %w`, q.key, err))
	}
	return tile
}

// Bounds returns the geographic extent (minLon, minLat, maxLon, maxLat) of q
func (q QuadKey) Bounds() geom.Extent {
	return tileSystem.TileBounds(q.Tile())
}

func (q QuadKey) MarshalText() ([]byte, error) {
	return []byte(q.key), nil
}

func (q *QuadKey) UnmarshalText(text []byte) error {
	parsed, err := New(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
