package quadkey

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/pdok/quadkey/tms20"
)

// FromNative returns the quadkey of the tile at level that contains pt, a point in the CRS of tms.
// Level n is tile matrix n, so tms has to be a quad tree starting with a single tile (like WebMercatorQuad).
func FromNative(tms tms20.TileMatrixSet, level uint, pt geom.Point) (QuadKey, error) {
	if err := tms.IsQuadTree(); err != nil {
		return QuadKey{}, fmt.Errorf("tile matrix set %v cannot be addressed by quadkeys: %w", tms.ID, err)
	}
	size, ok := tms.Size(level)
	if !ok {
		return QuadKey{}, fmt.Errorf("%w: %v has no tile matrix %d", ErrTileOutOfRange, tms.ID, level)
	}
	tile, ok := tms.FromNative(level, pt)
	if !ok {
		return QuadKey{}, fmt.Errorf("%w: %v is outside tile matrix %d of %v (%dx%d tiles)",
			ErrTileOutOfRange, pt, level, tms.ID, size.X, size.Y)
	}
	return FromTile(tile)
}

// NativeExtent returns the extent of q in the CRS of tms
func (q QuadKey) NativeExtent(tms tms20.TileMatrixSet) (geom.Extent, error) {
	if err := tms.IsQuadTree(); err != nil {
		return geom.Extent{}, fmt.Errorf("tile matrix set %v cannot be addressed by quadkeys: %w", tms.ID, err)
	}
	extent, ok := tms.TileExtent(q.Tile())
	if !ok {
		return geom.Extent{}, fmt.Errorf("%w: quadkey %v has no tile in %v", ErrTileOutOfRange, q, tms.ID)
	}
	return extent, nil
}
