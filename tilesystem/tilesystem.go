// Package tilesystem converts between geographic coordinates, global pixel coordinates,
// tile coordinates and quadkeys of the spherical (Web) Mercator tile pyramid.
// See https://learn.microsoft.com/en-us/bingmaps/articles/bing-maps-tile-system
package tilesystem

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
)

const (
	MinLevel uint = 1
	MaxLevel uint = 23
)

// TileSystem is what a quadkey needs from a tile pyramid.
// Implementations hold no state.
type TileSystem interface {
	// QuadKeyToTile decodes a quadkey into a tile whose Z is the length of the key
	QuadKeyToTile(key string) (*slippy.Tile, error)
	// TileToQuadKey encodes the lowest tile.Z bits of tile.X and tile.Y
	TileToQuadKey(tile *slippy.Tile) string
	// GeoToPixel clips lat/lon into the projection's domain before projecting
	GeoToPixel(lat, lon float64, level uint) geom.Point
	PixelToTile(pixel geom.Point, level uint) *slippy.Tile
	// MapSize is the width and height of the map in pixels
	MapSize(level uint) uint
	// GroundResolution is the distance on the ground in meters that is covered by one pixel
	GroundResolution(lat float64, level uint) float64
}

// ContractViolation is panicked when a caller breaks a precondition,
// like asking for a level outside [MinLevel, MaxLevel].
type ContractViolation struct {
	Op     string
	Detail string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Op, e.Detail)
}

func mustBeValidLevel(op string, level uint) {
	if level < MinLevel || level > MaxLevel {
		panic(&ContractViolation{
			Op:     op,
			Detail: fmt.Sprintf("level %d outside [%d, %d]", level, MinLevel, MaxLevel),
		})
	}
}
