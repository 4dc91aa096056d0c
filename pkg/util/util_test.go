package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dump = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
3
ITEM: BOX BOUNDS pp pp pp
0.0 10.0
-1.0 11.0
0.0 8.0
ITEM: ATOMS id type x y z
2 1 1.0 2.0 3.0
1 2 4.0 5.0 6.0
3 1 7.0 8.0 9.0
ITEM: TIMESTEP
100
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0.0 10.0
0.0 10.0
0.0 10.0
ITEM: ATOMS type xs ys zs
1 0.5 0.25 0.1
2 0.0 1.0 0.75
ITEM: TIMESTEP
200
ITEM: NUMBER OF ATOMS
1
ITEM: BOX BOUNDS pp pp pp
0.0 9.0
0.0 9.0
0.0 9.0
ITEM: ATOMS id type xu yu zu
1 3 -1.0 0.5 12.0`

func readAll(t *testing.T, r io.Reader) []Frame {
	br := bufio.NewReader(r)
	var frames []Frame
	for {
		f, err := ReadFrame(br)
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestReadFrame(t *testing.T) {
	frames := readAll(t, strings.NewReader(dump))
	require.Len(t, frames, 3)

	f := frames[0]
	assert.Equal(t, 0, f.Step)
	assert.Equal(t, [3]float64{0, -1, 0}, f.Lo)
	assert.Equal(t, [3]float64{10, 12, 8}, f.Box)
	assert.Equal(t, []int{1, 2, 3}, f.IDs)
	assert.Equal(t, []string{"2", "1", "1"}, f.Types)
	assert.Equal(t, [][3]float64{{4, 5, 6}, {1, 2, 3}, {7, 8, 9}}, f.XYZ)

	f = frames[1]
	assert.Equal(t, 100, f.Step)
	assert.Equal(t, []int{1, 2}, f.IDs)
	assert.Equal(t, [][3]float64{{5, 2.5, 1}, {0, 10, 7.5}}, f.XYZ)

	f = frames[2]
	assert.Equal(t, [][3]float64{{-1, 0.5, 12}}, f.XYZ)
	assert.Equal(t, []string{"3"}, f.Types)
}

func TestReadFrameErrors(t *testing.T) {
	for name, in := range map[string]string{
		"no timestep": "ITEM: NUMBER OF ATOMS\n3\n",
		"box":         "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: BOX BOUNDS\n0\n",
		"columns":     strings.Replace(dump, "id type x y z", "id x y z", 1),
		"fields":      strings.Replace(dump, "3 1 7.0 8.0 9.0", "3 1 7.0 8.0", 1),
		"mixed":       strings.Replace(dump, "id type x y z", "id type x ys z", 1),
	} {
		_, err := ReadFrame(bufio.NewReader(strings.NewReader(in)))
		assert.Error(t, err, name)
		assert.NotEqual(t, io.EOF, err, name)
	}
}

func TestSkipCfg(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(dump))
	require.NoError(t, SkipCfg(r, 2))
	f, err := ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, 200, f.Step)

	_, err = ReadFrame(r)
	assert.Equal(t, io.EOF, err)

	r = bufio.NewReader(strings.NewReader(dump))
	assert.NoError(t, SkipCfg(r, 3))
	assert.Error(t, SkipCfg(bufio.NewReader(strings.NewReader(dump)), 4))
}

func TestOpenCompressed(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "dump.lammpstrj")
	require.NoError(t, os.WriteFile(plain, []byte(dump), 0o644))

	gz := filepath.Join(dir, "dump.lammpstrj.gz")
	f, err := os.Create(gz)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(dump))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	zst := filepath.Join(dir, "dump.lammpstrj.zst")
	f, err = os.Create(zst)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(dump))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	var want []Frame
	for _, path := range []string{plain, gz, zst} {
		r, err := Open(path)
		require.NoError(t, err, path)
		frames := readAll(t, r)
		require.NoError(t, r.Close())

		if want == nil {
			want = frames
			continue
		}
		assert.Equal(t, want, frames, path)
	}

	_, err = Open(filepath.Join(dir, "missing.gz"))
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	type out struct {
		Name string  `toml:"calc.name"`
		RMax float64 `toml:"calc.rmax"`
	}

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := Write(path, out{Name: "rdf", RMax: 1.2})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "Date: "))
	assert.Contains(t, s, "rmax")
	assert.Contains(t, s, "1.2")
	assert.Contains(t, s, `"rdf"`)
}

func TestPow(t *testing.T) {
	assert.Equal(t, 8.0, Pow(2, 3))
	assert.Equal(t, 1.5, Pow(1.5, 1))
}
