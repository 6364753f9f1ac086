package tilesystem

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
	"github.com/pdok/quadkey/mathhelp"
	"github.com/pdok/quadkey/morton"
)

const (
	EarthRadius  = 6378137.
	MinLatitude  = -85.05112878
	MaxLatitude  = 85.05112878
	MinLongitude = -180.
	MaxLongitude = 180.
	TileSize     = 256
	// inch in meters, for MapScale
	inch = 0.0254
)

// WebMercator is the tile system used by Bing Maps, OSM and Google Maps (EPSG:3857, 256px tiles).
// Level 1 is 2x2 tiles. Pixel (0, 0) is the top left corner of the map.
type WebMercator struct{}

var _ TileSystem = WebMercator{}

func (WebMercator) MapSize(level uint) uint {
	return TileSize << level
}

func (ws WebMercator) GroundResolution(lat float64, level uint) float64 {
	lat = mathhelp.Clip(lat, MinLatitude, MaxLatitude)
	return math.Cos(lat*math.Pi/180) * 2 * math.Pi * EarthRadius / float64(ws.MapSize(level))
}

// MapScale returns the scale denominator (1:N) at the given screen resolution in dots per inch
func (ws WebMercator) MapScale(lat float64, level uint, dpi uint) float64 {
	return ws.GroundResolution(lat, level) * float64(dpi) / inch
}

// GeoToPixel returns the pixel containing lat/lon. A NaN latitude or longitude counts as the minimum.
func (ws WebMercator) GeoToPixel(lat, lon float64, level uint) geom.Point {
	mustBeValidLevel("GeoToPixel", level)
	if math.IsNaN(lat) {
		lat = MinLatitude
	}
	if math.IsNaN(lon) {
		lon = MinLongitude
	}
	lat = mathhelp.Clip(lat, MinLatitude, MaxLatitude)
	lon = mathhelp.Clip(lon, MinLongitude, MaxLongitude)

	x := (lon + 180) / 360
	sinLat := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	mapSize := float64(ws.MapSize(level))
	return geom.Point{
		math.Floor(mathhelp.Clip(x*mapSize+0.5, 0, mapSize-1)),
		math.Floor(mathhelp.Clip(y*mapSize+0.5, 0, mapSize-1)),
	}
}

// PixelToGeo returns lat, lon of a pixel corner.
// Unlike GeoToPixel it accepts mapSize itself, so the far edges of the last tiles can be located.
func (ws WebMercator) PixelToGeo(pixel geom.Point, level uint) (lat, lon float64) {
	mapSize := float64(ws.MapSize(level))
	x := mathhelp.Clip(pixel.X(), 0, mapSize)/mapSize - 0.5
	y := 0.5 - mathhelp.Clip(pixel.Y(), 0, mapSize)/mapSize

	lat = 90 - 360*math.Atan(math.Exp(-y*2*math.Pi))/math.Pi
	lon = 360 * x
	return lat, lon
}

func (ws WebMercator) PixelToTile(pixel geom.Point, level uint) *slippy.Tile {
	maxTile := float64(mathhelp.Pow2(level) - 1)
	return slippy.NewTile(
		level,
		uint(mathhelp.Clip(math.Floor(pixel.X()/TileSize), 0, maxTile)),
		uint(mathhelp.Clip(math.Floor(pixel.Y()/TileSize), 0, maxTile)),
	)
}

// TileToPixel returns the top left pixel of a tile
func (WebMercator) TileToPixel(tile *slippy.Tile) geom.Point {
	return geom.Point{float64(tile.X * TileSize), float64(tile.Y * TileSize)}
}

// TileToQuadKey keeps only the lowest tile.Z bits of each axis.
// A column or row of 2^Z (one past the grid) therefore encodes like 0.
func (WebMercator) TileToQuadKey(tile *slippy.Tile) string {
	mustBeValidLevel("TileToQuadKey", tile.Z)
	mask := mathhelp.Pow2(tile.Z) - 1
	return morton.ToQuadKey(morton.MustToZ(tile.X&mask, tile.Y&mask), tile.Z)
}

func (WebMercator) QuadKeyToTile(key string) (*slippy.Tile, error) {
	if uint(len(key)) > MaxLevel {
		return nil, fmt.Errorf(`quadkey "%v" is longer than %v digits`, key, MaxLevel)
	}
	z, pos, ok := morton.FromQuadKey(key)
	if !ok {
		return nil, fmt.Errorf(`invalid quadkey digit %q at position %v in "%v"`, key[pos], pos, key)
	}
	x, y := morton.FromZ(z)
	return slippy.NewTile(uint(len(key)), x, y), nil
}

// TileBounds returns the geographic extent (minLon, minLat, maxLon, maxLat) of a tile
func (ws WebMercator) TileBounds(tile *slippy.Tile) geom.Extent {
	topLeft := ws.TileToPixel(tile)
	bottomRight := ws.TileToPixel(slippy.NewTile(tile.Z, tile.X+1, tile.Y+1))
	maxLat, minLon := ws.PixelToGeo(topLeft, tile.Z)
	minLat, maxLon := ws.PixelToGeo(bottomRight, tile.Z)
	return geom.Extent{minLon, minLat, maxLon, maxLat}
}
