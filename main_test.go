package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pdok/quadkey/quadkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = newApp(&out, &errOut).Run(append([]string{"quadkey"}, args...))
	return out.String(), errOut.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "encode", args: []string{"encode", "--lat=51.5074", "--lon=-0.1278", "--level=10"}, want: "0313131311\n"},
		{name: "encode origin", args: []string{"encode", "--lat=0", "--lon=0", "-z=1"}, want: "3\n"},
		{name: "decode", args: []string{"decode", "213"}, want: "3/3/5\n"},
		{name: "parent", args: []string{"parent", "0312"}, want: "031\n"},
		{name: "children", args: []string{"children", "03"}, want: "030\n031\n032\n033\n"},
		{name: "no children", args: []string{"children", strings.Repeat("0", 23)}, want: ""},
		{name: "nearby", args: []string{"nearby", "000"}, want: "003\n001\n002\n"},
		{name: "ancestor", args: []string{"ancestry", "03", "0312"}, want: "ancestor: 2\ndescendant: none\n"},
		{name: "descendant", args: []string{"ancestry", "0312", "03"}, want: "ancestor: none\ndescendant: 2\n"},
		{name: "unrelated", args: []string{"ancestry", "03", "13"}, want: "ancestor: none\ndescendant: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArea(t *testing.T) {
	got, _, err := run(t, "area", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "4015017405873"), got)

	got, _, err = run(t, "area", "--native", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "4015017405"), got)
}

func TestBounds(t *testing.T) {
	got, _, err := run(t, "bounds", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "POLYGON"), got)
	assert.Contains(t, got, "-180")

	got, _, err = run(t, "bounds", "--native", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "SRID=3857;POLYGON"), got)

	got, _, err = run(t, "--max-len=10", "bounds", "--native", "0")
	require.NoError(t, err)
	assert.Equal(t, "SRID=3857;POLYGON...\n", got)
}

func TestWktOutput(t *testing.T) {
	got, _, err := run(t, "children", "--wkt", "0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "POLYGON"), line)
	}

	got, _, err = run(t, "--max-len=10", "nearby", "--wkt", "000")
	require.NoError(t, err)
	assert.Equal(t, "POLYGON...\nPOLYGON...\nPOLYGON...\n", got)
}

func TestErrors(t *testing.T) {
	_, _, err := run(t, "decode", "0124")
	require.ErrorIs(t, err, quadkey.ErrInvalidKey)

	_, _, err = run(t, "decode")
	require.ErrorContains(t, err, "missing quadkey argument")

	_, _, err = run(t, "parent", "0")
	require.ErrorIs(t, err, quadkey.ErrInvalidKey)

	_, _, err = run(t, "encode", "--lat=0", "--lon=0", "--level=24")
	require.ErrorContains(t, err, "Level")

	_, _, err = run(t, "--log-level=loud", "decode", "0")
	require.ErrorContains(t, err, "Level")

	_, _, err = run(t, "--tilematrixset=NoSuchTileMatrixSet", "bounds", "--native", "0")
	require.Error(t, err)

	_, _, err = run(t, "--tilematrixset=tms20/testdata/NotAQuadTree.json", "bounds", "--native", "0")
	require.ErrorContains(t, err, "cannot be addressed by quadkeys")
}

func TestLogging(t *testing.T) {
	_, stderr, err := run(t, "--log-level=debug", "nearby", "213")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"quadkey":"213"`)
	assert.Contains(t, stderr, `"count":8`)

	_, stderr, err = run(t, "nearby", "213")
	require.NoError(t, err)
	assert.Empty(t, stderr)
}
