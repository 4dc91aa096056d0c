package energy

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/kpotier/nonbonded/pkg/nonbonded"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forceField = `method = "%s"
cutoff = 0.9
ewald_tolerance = 1.0e-5

[types.1]
charge = 0.5
sigma = 0.3
epsilon = 0.5

[types.2]
charge = -0.5
sigma = 0.2
epsilon = 0.8
`

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// dumpFrame formats a configuration in Angstroms.
func dumpFrame(step int, box float64, types []int, xyz [][3]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ITEM: TIMESTEP\n%d\nITEM: NUMBER OF ATOMS\n%d\n", step, len(xyz))
	fmt.Fprint(&b, "ITEM: BOX BOUNDS pp pp pp\n")
	for k := 0; k < 3; k++ {
		fmt.Fprintf(&b, "0.0 %g\n", box)
	}
	fmt.Fprint(&b, "ITEM: ATOMS id type x y z\n")
	for i := range xyz {
		fmt.Fprintf(&b, "%d %d %g %g %g\n", i+1, types[i], xyz[i][0], xyz[i][1], xyz[i][2])
	}
	return b.String()
}

// readOutput returns the values of every line following the column names.
func readOutput(t *testing.T, path string) (cols []string, rows [][]float64) {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if strings.HasPrefix(s.Text(), "cfg step energy") {
			cols = strings.Fields(s.Text())
			break
		}
	}
	require.NotNil(t, cols, "no column names")

	for s.Scan() {
		fields := strings.Fields(s.Text())
		require.Len(t, fields, len(cols))
		row := make([]float64, len(fields))
		for k, v := range fields {
			row[k], err = strconv.ParseFloat(v, 64)
			require.NoError(t, err)
		}
		rows = append(rows, row)
	}
	require.NoError(t, s.Err())
	return cols, rows
}

func newCalc(t *testing.T, dir, method, dump, extra string) *Energy {
	ff := writeFile(t, dir, "ff.toml", fmt.Sprintf(forceField, method))
	in := writeFile(t, dir, "dump.lammpstrj", dump)
	cfg := writeFile(t, dir, "energy.toml", fmt.Sprintf(`[energy]
file_in = %q
file_out = %q
force_field = %q
scale = 0.1
%s
`, in, filepath.Join(dir, "out.txt"), ff, extra))

	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestEnergyTwoParticles(t *testing.T) {
	dir := t.TempDir()
	dump := dumpFrame(0, 50, []int{1, 2}, [][3]float64{{0, 0, 0}, {5, 0, 0}}) +
		dumpFrame(10, 50, []int{1, 2}, [][3]float64{{1, 1, 1}, {1, 4, 1}})

	e := newCalc(t, dir, "NoCutoff", dump, "cfg_start = 0\ncfg_end = 2\nforces = true")
	require.NoError(t, e.Start())

	cols, rows := readOutput(t, e.FileOut)
	assert.Equal(t, []string{"cfg", "step", "energy", "fmax"}, cols)
	require.Len(t, rows, 2)

	sigma, eps := 0.25, math.Sqrt(0.4)
	for k, r := range []float64{0.5, 0.3} {
		sr6 := math.Pow(sigma/r, 6)
		energy := 4*eps*(sr6*sr6-sr6) - 138.935456*0.25/r
		force := 4*eps*(12*sr6*sr6-6*sr6)/r - 138.935456*0.25/(r*r)

		assert.Equal(t, float64(k), rows[k][0])
		assert.InDelta(t, energy, rows[k][2], 1e-9*math.Abs(energy))
		assert.InDelta(t, math.Abs(force), rows[k][3], 1e-9*math.Abs(force))
	}
	assert.Equal(t, 10.0, rows[1][1])
}

func TestEnergySplit(t *testing.T) {
	dir := t.TempDir()

	var dump string
	var frames [][][3]float64
	types := []int{1, 2, 1, 2, 2, 1, 2, 1}
	for c := 0; c < 3; c++ {
		var xyz [][3]float64
		for i := 0; i < 8; i++ {
			x := [3]float64{float64(i%2) * 10, float64(i/2%2) * 10, float64(i/4) * 10}
			x[0] += float64(c) + 1.3*float64(i)
			xyz = append(xyz, x)
		}
		frames = append(frames, xyz)
		dump += dumpFrame(c, 20, types, xyz)
	}

	e := newCalc(t, dir, "Ewald", dump, "cfg_start = 0\ncfg_end = 3\nspacing = 2\nsplit = true\nthreads = 2")
	require.NoError(t, e.Start())

	cols, rows := readOutput(t, e.FileOut)
	assert.Equal(t, []string{"cfg", "step", "energy", "direct", "reciprocal"}, cols)
	require.Len(t, rows, 2)

	ff, err := ReadForceField(e.ForceField)
	require.NoError(t, err)
	nff, err := ff.Build([]string{"1", "2", "1", "2", "2", "1", "2", "1"}, [3]float64{2, 2, 2})
	require.NoError(t, err)
	ev, err := nonbonded.New(nff, nonbonded.Options{Workers: 1})
	require.NoError(t, err)

	for k, c := range []int{0, 2} {
		pos := make([][3]float64, 8)
		for i := range pos {
			for d := 0; d < 3; d++ {
				pos[i][d] = frames[c][i][d] * 0.1
			}
		}
		want, err := ev.Execute(pos, [3]float64{2, 2, 2}, nil, nonbonded.Include{Energy: true, Direct: true, Reciprocal: true})
		require.NoError(t, err)

		assert.Equal(t, float64(c), rows[k][0])
		assert.InDelta(t, want, rows[k][2], 1e-8*math.Abs(want))
		assert.InDelta(t, rows[k][2], rows[k][3]+rows[k][4], 1e-8*math.Abs(want))
		assert.NotZero(t, rows[k][4])
	}
}

func TestEnergyShortTrajectory(t *testing.T) {
	dir := t.TempDir()
	dump := dumpFrame(0, 50, []int{1, 2}, [][3]float64{{0, 0, 0}, {5, 0, 0}})
	e := newCalc(t, dir, "NoCutoff", dump, "cfg_start = 0\ncfg_end = 2")
	assert.Error(t, e.Start())
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	ff := writeFile(t, dir, "ff.toml", fmt.Sprintf(forceField, "PME"))

	for name, body := range map[string]string{
		"cfg":        "cfg_start = 2\ncfg_end = 2",
		"spacing":    "cfg_start = 0\ncfg_end = 2\nspacing = -1",
		"scale":      "cfg_start = 0\ncfg_end = 2\nscale = -1.0",
		"forcefield": "cfg_start = 0\ncfg_end = 2\nforce_field = \"missing.toml\"",
	} {
		if !strings.Contains(body, "force_field") {
			body += fmt.Sprintf("\nforce_field = %q", ff)
		}
		cfg := writeFile(t, dir, name+".toml", "[energy]\n"+body+"\n")
		_, err := New(cfg)
		assert.Error(t, err, name)
	}
}

func TestForceFieldBuild(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "water.toml", `method = "PME"
cutoff = 1.0
use_dispersion_correction = true
molecule_size = 3

[types.1]
charge = -0.8476
sigma = 0.316557
epsilon = 0.650194

[types.2]
charge = 0.4238
sigma = 1.0
epsilon = 0.0

[[exceptions]]
particles = [0, 1]
charge_prod = 0.0
sigma = 1.0
epsilon = 0.0

[[exceptions]]
particles = [0, 2]

[[exceptions]]
particles = [1, 2]
`)

	ff, err := ReadForceField(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ff.MoleculeSize)
	require.Len(t, ff.Exceptions, 3)

	types := []string{"1", "2", "2", "1", "2", "2"}
	nff, err := ff.Build(types, [3]float64{3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, nonbonded.PME, nff.Method)
	assert.True(t, nff.UseDispersionCorrection)
	assert.Equal(t, [3]float64{3, 3, 3}, nff.Box)
	require.Len(t, nff.Particles, 6)
	assert.Equal(t, -0.8476, nff.Particles[3].Charge)
	assert.Equal(t, 0.4238, nff.Particles[5].Charge)

	require.Len(t, nff.Exceptions, 6)
	assert.Equal(t, [2]int{3, 4}, [2]int{nff.Exceptions[3].P1, nff.Exceptions[3].P2})
	assert.Equal(t, [2]int{4, 5}, [2]int{nff.Exceptions[5].P1, nff.Exceptions[5].P2})
	assert.Zero(t, nonbonded.Retained(nff.Exceptions))

	_, err = ff.Build([]string{"1", "2"}, [3]float64{3, 3, 3})
	assert.Error(t, err, "not a multiple of the molecule size")
	_, err = ff.Build([]string{"1", "2", "3"}, [3]float64{3, 3, 3})
	assert.Error(t, err, "unknown type")

	ff.Method = "reaction-field"
	_, err = ff.Build(types, [3]float64{3, 3, 3})
	assert.True(t, errors.Is(err, nonbonded.ErrInvalidConfiguration))
}
