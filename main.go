package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/iancoleman/strcase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/pdok/quadkey/geomhelp"
	"github.com/pdok/quadkey/logging"
	"github.com/pdok/quadkey/mapslicehelp"
	"github.com/pdok/quadkey/quadkey"
	"github.com/pdok/quadkey/tms20"
)

const LOGLEVEL string = `log-level`
const CONSOLE string = `console`
const TILEMATRIXSET string = `tilematrixset`
const MAXLEN string = `max-len`
const LAT string = `lat`
const LON string = `lon`
const LEVEL string = `level`
const NATIVE string = `native`
const WKT string = `wkt`

type options struct {
	Logging logging.Config
	// ID of an embedded tile matrix set, or the path of a tile matrix set JSON file
	TileMatrixSet string `default:"WebMercatorQuad" validate:"required"`
	// 0 is no limit
	MaxLen uint
}

type encodeOptions struct {
	Lat   float64
	Lon   float64
	Level uint `validate:"min=1,max=23"`
}

// env is what the commands share once the global flags are parsed
type env struct {
	opts   options
	logger zerolog.Logger
	out    io.Writer
}

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("quadkey failed")
	}
}

//nolint:funlen
func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{out: stdout}

	app := cli.NewApp()
	app.Name = "quadkey"
	app.Usage = "Encode and navigate quadtree tile keys"
	app.Version = versioninfo.Short()
	app.Writer = stdout
	app.ErrWriter = stderr

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "One of debug, info, warn, error",
			EnvVars: []string{strcase.ToScreamingSnake(LOGLEVEL)},
		},
		&cli.BoolFlag{
			Name:    CONSOLE,
			Usage:   "Human readable instead of JSON logging",
			EnvVars: []string{strcase.ToScreamingSnake(CONSOLE)},
		},
		&cli.StringFlag{
			Name:    TILEMATRIXSET,
			Aliases: []string{"tms"},
			Usage:   `ID of a (built-in) tile matrix set or path to a tile matrix set JSON file. Default: WebMercatorQuad`,
			EnvVars: []string{strcase.ToScreamingSnake(TILEMATRIXSET)},
		},
		&cli.UintFlag{
			Name:    MAXLEN,
			Usage:   "Truncate WKT output to this many characters, 0 for no limit",
			EnvVars: []string{strcase.ToScreamingSnake(MAXLEN)},
		},
	}

	app.Before = func(c *cli.Context) error {
		if err := defaults.Set(&e.opts); err != nil {
			return err
		}
		if c.IsSet(LOGLEVEL) {
			e.opts.Logging.Level = c.String(LOGLEVEL)
		}
		e.opts.Logging.Console = c.Bool(CONSOLE)
		if c.IsSet(TILEMATRIXSET) {
			e.opts.TileMatrixSet = c.String(TILEMATRIXSET)
		}
		e.opts.MaxLen = c.Uint(MAXLEN)
		if err := validate(e.opts); err != nil {
			return err
		}
		e.logger = logging.Build(e.opts.Logging, stderr)
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:  "encode",
			Usage: "Quadkey of the tile containing a WGS84 coordinate",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: LAT, Usage: "Latitude in degrees", Required: true},
				&cli.Float64Flag{Name: LON, Usage: "Longitude in degrees", Required: true},
				&cli.UintFlag{Name: LEVEL, Aliases: []string{"z"}, Usage: "Level (1-23)", Required: true},
			},
			Action: e.encode,
		},
		{
			Name:      "decode",
			Usage:     "Tile (z/x/y) of a quadkey",
			ArgsUsage: "<quadkey>",
			Action:    e.decode,
		},
		{
			Name:      "parent",
			Usage:     "Quadkey one level up",
			ArgsUsage: "<quadkey>",
			Action:    e.parent,
		},
		{
			Name:      "children",
			Usage:     "The four quadkeys one level down",
			ArgsUsage: "<quadkey>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: WKT, Usage: "Write the WGS84 extents as WKT polygons instead of the quadkeys"},
			},
			Action: e.children,
		},
		{
			Name:      "nearby",
			Usage:     "The surrounding quadkeys at the same level",
			ArgsUsage: "<quadkey>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: WKT, Usage: "Write the WGS84 extents as WKT polygons instead of the quadkeys"},
			},
			Action: e.nearby,
		},
		{
			Name:      "ancestry",
			Usage:     "Whether a is an ancestor or descendant of b, and how many levels apart",
			ArgsUsage: "<a> <b>",
			Action:    e.ancestry,
		},
		{
			Name:      "area",
			Usage:     "Approximate ground area in square meters, or the planar area in the tile matrix set CRS",
			ArgsUsage: "<quadkey>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: NATIVE, Usage: "Use the extent in the tile matrix set CRS"},
			},
			Action: e.area,
		},
		{
			Name:      "bounds",
			Usage:     "Extent of a quadkey as a WKT polygon, EWKT with --native",
			ArgsUsage: "<quadkey>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: NATIVE, Usage: "Use the extent in the tile matrix set CRS instead of WGS84 lon/lat"},
			},
			Action: e.bounds,
		},
	}

	return app
}

func validate(s any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return v.Struct(s)
}

func (e *env) encode(c *cli.Context) error {
	opts := encodeOptions{Lat: c.Float64(LAT), Lon: c.Float64(LON), Level: c.Uint(LEVEL)}
	if err := validate(opts); err != nil {
		return err
	}
	q := quadkey.FromGeo(opts.Lat, opts.Lon, opts.Level)
	e.logger.Debug().Float64(LAT, opts.Lat).Float64(LON, opts.Lon).Uint(LEVEL, opts.Level).Str("quadkey", q.String()).Msg("encoded")
	return e.println(q)
}

func (e *env) decode(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	tile := q.Tile()
	return e.println(fmt.Sprintf("%d/%d/%d", tile.Z, tile.X, tile.Y))
}

func (e *env) parent(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	parent, err := q.Parent()
	if err != nil {
		return err
	}
	return e.println(parent)
}

func (e *env) children(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	children := q.Children()
	if len(children) == 0 {
		e.logger.Warn().Str("quadkey", q.String()).Msgf("no children beyond level %d", quadkey.MaxLevel)
	}
	return e.printlnAll(c, children)
}

func (e *env) nearby(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	nearby := q.Nearby()
	e.logger.Debug().Str("quadkey", q.String()).Int("count", len(nearby)).Msg("nearby")
	return e.printlnAll(c, nearby)
}

func (e *env) ancestry(c *cli.Context) error {
	a, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	b, err := quadKeyArg(c, 1)
	if err != nil {
		return err
	}
	levels := func(diff int, ok bool) string {
		if !ok {
			return "none"
		}
		return strconv.Itoa(diff)
	}
	return e.println(fmt.Sprintf("ancestor: %v\ndescendant: %v", levels(a.IsAncestor(b)), levels(a.IsDescendant(b))))
}

func (e *env) area(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	if !c.Bool(NATIVE) {
		return e.println(strconv.FormatFloat(q.Area(), 'f', -1, 64))
	}
	_, extent, err := e.nativeExtent(q)
	if err != nil {
		return err
	}
	return e.println(strconv.FormatFloat(geomhelp.PolygonArea(geomhelp.ExtentToPolygon(extent)), 'f', -1, 64))
}

func (e *env) bounds(c *cli.Context) error {
	q, err := quadKeyArg(c, 0)
	if err != nil {
		return err
	}
	if !c.Bool(NATIVE) {
		return e.println(geomhelp.WktMustEncode(geomhelp.ExtentToPolygon(q.Bounds()), e.opts.MaxLen))
	}
	tms, extent, err := e.nativeExtent(q)
	if err != nil {
		return err
	}
	wkt := geomhelp.WktMustEncode(geomhelp.ExtentToPolygon(extent), e.opts.MaxLen)
	srid, err := tms.SRID()
	if err != nil {
		e.logger.Warn().Err(err).Str(TILEMATRIXSET, tms.ID).Msg("no SRID, writing plain WKT")
		return e.println(wkt)
	}
	return e.println(fmt.Sprintf("SRID=%d;%s", srid, wkt))
}

func (e *env) nativeExtent(q quadkey.QuadKey) (tms tms20.TileMatrixSet, extent geom.Extent, err error) {
	tms, err = e.loadTileMatrixSet()
	if err != nil {
		return tms, extent, err
	}
	extent, err = q.NativeExtent(tms)
	return tms, extent, err
}

func (e *env) loadTileMatrixSet() (tms20.TileMatrixSet, error) {
	id := e.opts.TileMatrixSet
	e.logger.Debug().Str(TILEMATRIXSET, id).Msg("loading tile matrix set")
	if strings.EqualFold(filepath.Ext(id), ".json") {
		return tms20.LoadJSONTileMatrixSet(id)
	}
	return tms20.LoadEmbeddedTileMatrixSet(id)
}

func (e *env) println(v any) error {
	_, err := fmt.Fprintln(e.out, v)
	return err
}

func (e *env) printlnAll(c *cli.Context, qs []quadkey.QuadKey) error {
	if len(qs) == 0 {
		return nil
	}
	if c.Bool(WKT) {
		polygons := mapslicehelp.MapSlice(qs, func(q quadkey.QuadKey) geom.Polygon {
			return geomhelp.ExtentToPolygon(q.Bounds())
		})
		_, err := fmt.Fprint(e.out, geomhelp.WktMustEncodeSlice(polygons, e.opts.MaxLen))
		return err
	}
	_, err := fmt.Fprintln(e.out, strings.Join(mapslicehelp.MapSlice(qs, quadkey.QuadKey.String), "\n"))
	return err
}

func quadKeyArg(c *cli.Context, i int) (quadkey.QuadKey, error) {
	if c.NArg() <= i {
		return quadkey.QuadKey{}, errors.New("missing quadkey argument, usage: " + c.Command.ArgsUsage)
	}
	return quadkey.New(c.Args().Get(i))
}
