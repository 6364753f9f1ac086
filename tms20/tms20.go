// Package tms20 implements the parts of the OGC Tile Matrix Set standard (v2.0) needed to address quadkeys
// in a native CRS. See https://www.ogc.org/standard/tms/
package tms20

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
	"github.com/perimeterx/marshmallow"
	"golang.org/x/exp/maps"
)

// WebMercatorQuad is the id of the embedded tile matrix set matching the quadkey tile pyramid
const WebMercatorQuad = "WebMercatorQuad"

var (
	//go:embed tilematrixsets/*.json
	embeddedTileMatrixSetsJSONFS embed.FS
	embeddedTileMatrixSetsCache  = make(map[string]*TileMatrixSet)
	embeddedTileMatrixSetsMu     sync.Mutex
)

// TMID is the (integer) identifier of a tile matrix, usually its zoom level
type TMID = int

// LoadEmbeddedTileMatrixSet returns a fresh copy on every call, so callers may change the result
func LoadEmbeddedTileMatrixSet(id string) (TileMatrixSet, error) {
	embeddedTileMatrixSetsMu.Lock()
	defer embeddedTileMatrixSetsMu.Unlock()
	if cached, ok := embeddedTileMatrixSetsCache[id]; ok {
		tms := *cached
		tms.TileMatrices = maps.Clone(cached.TileMatrices)
		return tms, nil
	}
	tmsJSON, err := embeddedTileMatrixSetsJSONFS.ReadFile("tilematrixsets/" + id + ".json")
	if err != nil {
		return TileMatrixSet{}, fmt.Errorf(`no embedded tile matrix set "%v": %w`, id, err)
	}
	var tms TileMatrixSet
	if err = json.Unmarshal(tmsJSON, &tms); err != nil {
		return TileMatrixSet{}, fmt.Errorf(`could not load embedded tile matrix set "%v": %w`, id, err)
	}
	cached := tms
	cached.TileMatrices = maps.Clone(tms.TileMatrices)
	embeddedTileMatrixSetsCache[id] = &cached
	return tms, nil
}

func LoadJSONTileMatrixSet(path string) (TileMatrixSet, error) {
	var tms TileMatrixSet
	tmsJSON, err := os.ReadFile(path)
	if err != nil {
		return tms, err
	}
	err = json.Unmarshal(tmsJSON, &tms)
	return tms, err
}

// TileMatrixSet is a definition of a tile matrix set following the Tile Matrix Set standard.
type TileMatrixSet struct {
	// Tile matrix set identifier
	ID string `validate:"required" json:"id"`
	// Title of this tile matrix set, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Reference to an official source for this TileMatrixSet
	URI         string   `validate:"omitempty,uri" json:"uri,omitempty"`
	OrderedAxes []string `validate:"omitempty,len=2" json:"orderedAxes,omitempty"`
	// Coordinate Reference System (CRS)
	CRS CRS `validate:"required" json:"-"`
	// Reference to a well-known scale set
	WellKnownScaleSet string `validate:"omitempty,uri" json:"wellKnownScaleSet,omitempty"`
	// Minimum bounding rectangle surrounding the tile matrix set, in the supported CRS
	BoundingBox *TwoDBoundingBox `json:"boundingBox,omitempty"`
	// Describes scale levels and its tile matrices
	TileMatrices map[TMID]TileMatrix `validate:"required,min=1" json:"-"`
}

func (tms *TileMatrixSet) UnmarshalJSON(data []byte) error {
	err := defaults.Set(tms)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, tms, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawCrs, ok := specials["crs"]
	if !ok {
		return errors.New(`missing key "crs"`)
	}
	tms.CRS, err = unmarshalCRS(rawCrs)
	if err != nil {
		return err
	}

	rawTileMatrices, ok := specials["tileMatrices"]
	if !ok {
		return errors.New(`missing key "tileMatrices"`)
	}
	tms.TileMatrices, err = unmarshalTileMatrices(rawTileMatrices)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tms)
}

func unmarshalTileMatrices(rawTileMatrices interface{}) (map[TMID]TileMatrix, error) {
	rawTileMatricesList, ok := rawTileMatrices.([]interface{})
	if !ok {
		return nil, errors.New(`"tileMatrices" should be an array`)
	}
	tileMatrices := make(map[TMID]TileMatrix, len(rawTileMatricesList))
	for _, rawTileMatrix := range rawTileMatricesList {
		var tileMatrix TileMatrix
		err := tileMatrix.UnmarshalJSONFromMap(rawTileMatrix)
		if err != nil {
			return nil, err
		}
		tileMatrixID, err := strconv.Atoi(tileMatrix.ID)
		if err != nil {
			return nil, fmt.Errorf("only integer-like ids are supported for tile matrices: %w", err)
		}
		tileMatrices[tileMatrixID] = tileMatrix
	}
	return tileMatrices, nil
}

var (
	crsURIRegexURL = regexp.MustCompile("https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	crsURIRegexURN = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+)::(?P<code>[^:]+)$")
)

// CRS is a coordinate reference system given by URI, either as a plain string or as {"uri": ...}.
// The WKT and ISO 19115 reference system variants of the standard are not supported.
type CRS struct {
	URI           string `validate:"required,uri"`
	AuthorityName string `validate:"required"`
	AuthorityCode string `validate:"required"`
}

func unmarshalCRS(rawCrs interface{}) (CRS, error) {
	var crs CRS
	switch v := rawCrs.(type) {
	case string:
		crs.URI = v
	case map[string]interface{}:
		rawURI, ok := v["uri"]
		if !ok {
			return crs, errors.New(`only crs by uri is supported, uri property not found`)
		}
		crs.URI, ok = rawURI.(string)
		if !ok {
			return crs, fmt.Errorf(`uri property is not a string but a %T`, rawURI)
		}
	default:
		return crs, fmt.Errorf(`wrong type key "crs": %T`, rawCrs)
	}

	uriParts := crsURIRegexURL.FindStringSubmatch(crs.URI)
	if uriParts == nil {
		uriParts = crsURIRegexURN.FindStringSubmatch(crs.URI)
	}
	if uriParts == nil {
		return crs, fmt.Errorf(`could not parse crs uri "%v"`, crs.URI)
	}
	crs.AuthorityName = uriParts[1]
	crs.AuthorityCode = uriParts[2]
	return crs, nil
}

// TwoDBoundingBox is the minimum bounding rectangle surrounding a 2D resource in the CRS indicated elsewhere
type TwoDBoundingBox struct {
	LowerLeft   TwoDPoint `validate:"required" json:"lowerLeft"`
	UpperRight  TwoDPoint `validate:"required" json:"upperRight"`
	OrderedAxes []string  `validate:"omitempty,len=2" json:"orderedAxes,omitempty"`
}

// A 2D Point in the CRS indicated elsewhere
type TwoDPoint [2]float64

func (p TwoDPoint) XY() [2]float64 {
	return p
}

// A tile matrix, usually corresponding to a particular zoom level of a TileMatrixSet.
type TileMatrix struct {
	// Identifier selecting one of the scales defined in the TileMatrixSet
	ID               string  `validate:"required" json:"id"`
	ScaleDenominator float64 `validate:"required,gt=0" json:"scaleDenominator"`
	CellSize         float64 `validate:"required,gt=0" json:"cellSize"`
	// The corner of the tile matrix (_topLeft_ or _bottomLeft_) used as the origin for numbering tile rows and columns.
	CornerOfOrigin CornerOfOrigin `default:"topLeft" validate:"oneof=topLeft bottomLeft" json:"cornerOfOrigin,omitempty"`
	// Position in CRS coordinates of the corner of origin
	PointOfOrigin TwoDPoint `validate:"required" json:"pointOfOrigin"`
	TileWidth     uint      `default:"256" validate:"required,min=1" json:"tileWidth"`
	TileHeight    uint      `default:"256" validate:"required,min=1" json:"tileHeight"`
	MatrixWidth   uint      `validate:"required,min=1" json:"matrixWidth"`
	MatrixHeight  uint      `validate:"required,min=1" json:"matrixHeight"`
	// Describes the rows that have variable matrix width
	VariableMatrixWidths []VariableMatrixWidth `json:"variableMatrixWidths,omitempty"`
}

func (tm *TileMatrix) UnmarshalJSONFromMap(data interface{}) error {
	err := defaults.Set(tm)
	if err != nil {
		return err
	}

	dataMap, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf(`tile matrix is not an object but a %T`, data)
	}

	_, err = marshmallow.UnmarshalFromJSONMap(dataMap, tm, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tm)
}

type CornerOfOrigin string

const (
	TopLeft    CornerOfOrigin = "topLeft"
	BottomLeft CornerOfOrigin = "bottomLeft"
)

// Variable Matrix Width data structure
type VariableMatrixWidth struct {
	Coalesce   uint `validate:"required,min=2" json:"coalesce"`
	MinTileRow uint `json:"minTileRow"`
	MaxTileRow uint `json:"maxTileRow"`
}

func (tms *TileMatrixSet) SRID() (uint, error) {
	code, err := strconv.ParseUint(tms.CRS.AuthorityCode, 10, 64)
	if err != nil {
		return 0, fmt.Errorf(`could not parse crs authority code "%v": %w`, tms.CRS.AuthorityCode, err)
	}
	return uint(code), nil
}

// Size returns the number of tiles in width (X) and height (Y) of a tile matrix
func (tms *TileMatrixSet) Size(zoom uint) (*slippy.Tile, bool) {
	tm, ok := tms.TileMatrices[TMID(zoom)]
	if !ok {
		return nil, false
	}
	return slippy.NewTile(zoom, tm.MatrixWidth, tm.MatrixHeight), true
}

// FromNative returns the tile that contains pt, false if pt is outside the tile matrix
func (tms *TileMatrixSet) FromNative(zoom uint, pt geom.Point) (*slippy.Tile, bool) {
	tm, ok := tms.TileMatrices[TMID(zoom)]
	if !ok || tm.VariableMatrixWidths != nil {
		return nil, false
	}

	tileSizeX := float64(tm.TileWidth) * tm.CellSize
	minX := tm.PointOfOrigin.XY()[0]
	x := (pt.X() - minX) / tileSizeX
	if x < 0 || uint(x) >= tm.MatrixWidth {
		return nil, false
	}

	tileSizeY := float64(tm.TileHeight) * tm.CellSize
	var y float64
	switch tm.CornerOfOrigin {
	case BottomLeft:
		minY := tm.PointOfOrigin.XY()[1]
		y = (pt.Y() - minY) / tileSizeY
	default:
		maxY := tm.PointOfOrigin.XY()[1]
		y = (maxY - pt.Y()) / tileSizeY
	}
	if y < 0 || uint(y) >= tm.MatrixHeight {
		return nil, false
	}

	return slippy.NewTile(zoom, uint(x), uint(y)), true
}

// ToNative returns the top left corner of a tile.
// Tiles with x and y one higher than the max are allowed, so the far edges of the matrix can be located.
func (tms *TileMatrixSet) ToNative(tile *slippy.Tile) (geom.Point, bool) {
	topLeftPt := geom.Point{}
	tm, ok := tms.TileMatrices[TMID(tile.Z)]
	if !ok {
		return topLeftPt, false
	}
	if tile.X > tm.MatrixWidth || tile.Y > tm.MatrixHeight {
		return topLeftPt, false
	}

	tileSizeX := float64(tm.TileWidth) * tm.CellSize
	minX := tm.PointOfOrigin.XY()[0]
	topLeftPt[0] = minX + float64(tile.X)*tileSizeX

	tileSizeY := float64(tm.TileHeight) * tm.CellSize
	switch tm.CornerOfOrigin {
	case BottomLeft:
		minY := tm.PointOfOrigin.XY()[1]
		topLeftPt[1] = minY + float64(tile.Y+1)*tileSizeY
	default:
		maxY := tm.PointOfOrigin.XY()[1]
		topLeftPt[1] = maxY - float64(tile.Y)*tileSizeY
	}

	return topLeftPt, true
}

// TileExtent returns the extent of a tile in the native CRS
func (tms *TileMatrixSet) TileExtent(tile *slippy.Tile) (geom.Extent, bool) {
	tm, ok := tms.TileMatrices[TMID(tile.Z)]
	if !ok || tile.X >= tm.MatrixWidth || tile.Y >= tm.MatrixHeight {
		return geom.Extent{}, false
	}
	topLeft, _ := tms.ToNative(tile)
	width := float64(tm.TileWidth) * tm.CellSize
	height := float64(tm.TileHeight) * tm.CellSize
	return geom.Extent{topLeft.X(), topLeft.Y() - height, topLeft.X() + width, topLeft.Y()}, true
}

// relative
const cellSizeTolerance = 1e-9

// IsQuadTree checks that every tile matrix splits each tile of the previous one in four.
// Only then are the matrices addressable by quadkeys.
func (tms *TileMatrixSet) IsQuadTree() error {
	var previousTM *TileMatrix
	tmIDs := maps.Keys(tms.TileMatrices)
	slices.Sort(tmIDs)
	for _, tmID := range tmIDs {
		tm := tms.TileMatrices[tmID]
		if tm.MatrixHeight != tm.MatrixWidth {
			return errors.New("tile matrix height should be same as width: " + tm.ID)
		}
		if tm.TileHeight != tm.TileWidth {
			return errors.New("tiles should be square: " + tm.ID)
		}
		if len(tm.VariableMatrixWidths) != 0 {
			return errors.New("variable matrix widths are not supported: " + tm.ID)
		}
		if tm.CornerOfOrigin == BottomLeft {
			// quadkey digit 0 is the top left quadrant
			return errors.New("corner of origin should be topLeft: " + tm.ID)
		}
		if previousTM == nil {
			if tmID != 0 || tm.MatrixWidth != 1 {
				return errors.New("tile matrices should start with a single tile with id 0")
			}
		} else {
			if tmID != previousTM.id()+1 {
				return errors.New("tile matrix IDs should be a range with step 1 starting with 0")
			}
			if tm.PointOfOrigin != previousTM.PointOfOrigin {
				return errors.New("tile matrices should have the same point of origin: " + tm.ID)
			}
			if tm.CornerOfOrigin != previousTM.CornerOfOrigin {
				return errors.New("tile matrices should have the same corner of origin: " + tm.ID)
			}
			if tm.MatrixWidth != 2*previousTM.MatrixWidth {
				return errors.New("tile matrix should have twice the width of the previous one: " + tm.ID)
			}
			if tm.TileWidth != previousTM.TileWidth {
				return errors.New("tile matrices should have the same tile size: " + tm.ID)
			}
			if math.Abs(tm.CellSize-previousTM.CellSize/2) > cellSizeTolerance*previousTM.CellSize {
				return errors.New("tile matrix should have half the cell size of the previous one: " + tm.ID)
			}
		}
		previousTM = &tm
	}
	return nil
}

func (tm *TileMatrix) id() TMID {
	id, _ := strconv.Atoi(tm.ID)
	return id
}
