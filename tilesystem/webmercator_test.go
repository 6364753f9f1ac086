package tilesystem

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ws = WebMercator{}

func TestWebMercator_MapSize(t *testing.T) {
	assert.Equal(t, uint(512), ws.MapSize(1))
	assert.Equal(t, uint(1024), ws.MapSize(2))
	assert.Equal(t, uint(2147483648), ws.MapSize(23))
}

func TestWebMercator_GroundResolution(t *testing.T) {
	tests := []struct {
		lat   float64
		level uint
		want  float64
	}{
		{lat: 0, level: 1, want: 78271.51696402048},
		{lat: 60, level: 1, want: 39135.75848201025},
		{lat: -60, level: 1, want: 39135.75848201025},
		{lat: 0, level: 23, want: 0.01866138385868561},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("GroundResolution(%v, %v)", tt.lat, tt.level), func(t *testing.T) {
			assert.InDelta(t, tt.want, ws.GroundResolution(tt.lat, tt.level), 1e-9)
		})
	}
}

func TestWebMercator_MapScale(t *testing.T) {
	assert.InDelta(t, 295829355.4545656, ws.MapScale(0, 1, 96), 1e-3)
}

func TestWebMercator_GeoToPixel(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		level    uint
		want     geom.Point
	}{
		{name: "origin", lat: 0, lon: 0, level: 1, want: geom.Point{256, 256}},
		{name: "clipped top right", lat: 90, lon: 180, level: 1, want: geom.Point{511, 0}},
		{name: "clipped bottom left", lat: -90, lon: -180, level: 1, want: geom.Point{0, 511}},
		{name: "far out of range is clipped too", lat: 1000, lon: -1000, level: 1, want: geom.Point{0, 0}},
		{name: "London", lat: 51.5074, lon: -0.1278, level: 10, want: geom.Point{130979, 87170}},
		{name: "Utrecht", lat: 52.0907, lon: 5.1214, level: 15, want: geom.Point{4313641, 2767448}},
		{name: "NaN latitude is the minimum", lat: math.NaN(), lon: 0, level: 1, want: geom.Point{256, 511}},
		{name: "NaN longitude is the minimum", lat: 0, lon: math.NaN(), level: 1, want: geom.Point{0, 256}},
		{name: "NaN both", lat: math.NaN(), lon: math.NaN(), level: 3, want: geom.Point{0, 2047}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ws.GeoToPixel(tt.lat, tt.lon, tt.level))
		})
	}
}

func TestWebMercator_GeoToPixel_levelOutOfRange(t *testing.T) {
	for _, level := range []uint{0, 24, 100} {
		t.Run(fmt.Sprint(level), func(t *testing.T) {
			requireContractViolation(t, func() { ws.GeoToPixel(0, 0, level) })
		})
	}
}

func TestWebMercator_PixelToTile(t *testing.T) {
	tests := []struct {
		pixel geom.Point
		level uint
		want  *slippy.Tile
	}{
		{pixel: geom.Point{256, 256}, level: 1, want: &slippy.Tile{Z: 1, X: 1, Y: 1}},
		{pixel: geom.Point{255.9, 0}, level: 1, want: &slippy.Tile{Z: 1, X: 0, Y: 0}},
		{pixel: geom.Point{130979, 87170}, level: 10, want: &slippy.Tile{Z: 10, X: 511, Y: 340}},
		{pixel: geom.Point{4313641, 2767448}, level: 15, want: &slippy.Tile{Z: 15, X: 16850, Y: 10810}},
		// clamped into the grid
		{pixel: geom.Point{-1, 9999}, level: 1, want: &slippy.Tile{Z: 1, X: 0, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("PixelToTile(%v, %v)", tt.pixel, tt.level), func(t *testing.T) {
			require.Equal(t, tt.want, ws.PixelToTile(tt.pixel, tt.level))
		})
	}
}

func TestWebMercator_PixelToGeo(t *testing.T) {
	tests := []struct {
		pixel    geom.Point
		level    uint
		lat, lon float64
	}{
		{pixel: geom.Point{0, 0}, level: 1, lat: 85.05112877980659, lon: -180},
		{pixel: geom.Point{256, 256}, level: 1, lat: 0, lon: 0},
		{pixel: geom.Point{512, 512}, level: 1, lat: -85.05112877980659, lon: 180},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("PixelToGeo(%v, %v)", tt.pixel, tt.level), func(t *testing.T) {
			lat, lon := ws.PixelToGeo(tt.pixel, tt.level)
			assert.InDelta(t, tt.lat, lat, 1e-9)
			assert.InDelta(t, tt.lon, lon, 1e-9)
		})
	}
}

func TestWebMercator_TileToQuadKey(t *testing.T) {
	tests := []struct {
		tile *slippy.Tile
		want string
	}{
		{tile: slippy.NewTile(3, 3, 5), want: "213"},
		{tile: slippy.NewTile(1, 0, 0), want: "0"},
		{tile: slippy.NewTile(1, 1, 0), want: "1"},
		{tile: slippy.NewTile(1, 0, 1), want: "2"},
		{tile: slippy.NewTile(1, 1, 1), want: "3"},
		{tile: slippy.NewTile(10, 511, 340), want: "0313131311"},
		// one past the grid aliases to the first column
		{tile: slippy.NewTile(3, 8, 5), want: "202"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%v/%v", tt.tile.Z, tt.tile.X, tt.tile.Y), func(t *testing.T) {
			require.Equal(t, tt.want, ws.TileToQuadKey(tt.tile))
		})
	}
	requireContractViolation(t, func() { ws.TileToQuadKey(slippy.NewTile(0, 0, 0)) })
}

func TestWebMercator_QuadKeyToTile(t *testing.T) {
	tile, err := ws.QuadKeyToTile("213")
	require.NoError(t, err)
	require.Equal(t, &slippy.Tile{Z: 3, X: 3, Y: 5}, tile)

	_, err = ws.QuadKeyToTile("0124")
	require.ErrorContains(t, err, "position 3")

	_, err = ws.QuadKeyToTile("000000000000000000000000")
	require.Error(t, err)
}

func TestWebMercator_roundTrip(t *testing.T) {
	for level := uint(1); level <= 5; level++ {
		n := uint(1) << level
		for x := uint(0); x < n; x++ {
			for y := uint(0); y < n; y++ {
				tile := slippy.NewTile(level, x, y)
				got, err := ws.QuadKeyToTile(ws.TileToQuadKey(tile))
				require.NoError(t, err)
				require.Equal(t, tile, got)
			}
		}
	}
	for _, tile := range []*slippy.Tile{
		slippy.NewTile(23, 0, 0),
		slippy.NewTile(23, 1<<23-1, 1<<23-1),
		slippy.NewTile(23, 4194304, 123456),
		slippy.NewTile(15, 16850, 10810),
	} {
		got, err := ws.QuadKeyToTile(ws.TileToQuadKey(tile))
		require.NoError(t, err)
		require.Equal(t, tile, got)
	}
}

func TestWebMercator_TileBounds(t *testing.T) {
	got := ws.TileBounds(slippy.NewTile(1, 0, 0))
	assert.InDelta(t, -180, got.MinX(), 1e-9)
	assert.InDelta(t, 0, got.MinY(), 1e-9)
	assert.InDelta(t, 0, got.MaxX(), 1e-9)
	assert.InDelta(t, MaxLatitude, got.MaxY(), 1e-8)

	got = ws.TileBounds(slippy.NewTile(1, 1, 1))
	assert.InDelta(t, 0, got.MinX(), 1e-9)
	assert.InDelta(t, MinLatitude, got.MinY(), 1e-8)
	assert.InDelta(t, 180, got.MaxX(), 1e-9)
	assert.InDelta(t, 0, got.MaxY(), 1e-9)
}

func requireContractViolation(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		_, ok := r.(*ContractViolation)
		require.Truef(t, ok, "expected a *ContractViolation, got %T", r)
	}()
	f()
}
