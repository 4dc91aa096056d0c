package util

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Frame is a configuration of a Lammps trajectory. The atoms are sorted by
// id when the id column is present, in the order of the file otherwise.
type Frame struct {
	Step  int
	Lo    [3]float64
	Box   [3]float64
	IDs   []int
	Types []string
	XYZ   [][3]float64
}

// columns are the indices of the fields of an atom line.
type columns struct {
	id, typ int
	xyz     [3]int
	scaled  bool
	len     int
}

func parseColumns(line string) (columns, error) {
	fields := strings.Fields(line)
	if len(fields) <= 2 || fields[0] != "ITEM:" || fields[1] != "ATOMS" {
		return columns{}, fmt.Errorf("expected ITEM: ATOMS, got %q", strings.TrimSpace(line))
	}
	fields = fields[2:]

	c := columns{id: -1, typ: -1, xyz: [3]int{-1, -1, -1}, len: len(fields)}
	var scaled, unscaled bool
	for k, v := range fields {
		switch v {
		case "id":
			c.id = k
		case "type":
			c.typ = k
		case "x", "xu":
			c.xyz[0], unscaled = k, true
		case "y", "yu":
			c.xyz[1], unscaled = k, true
		case "z", "zu":
			c.xyz[2], unscaled = k, true
		case "xs", "xsu":
			c.xyz[0], scaled = k, true
		case "ys", "ysu":
			c.xyz[1], scaled = k, true
		case "zs", "zsu":
			c.xyz[2], scaled = k, true
		}
	}

	if c.typ < 0 || c.xyz[0] < 0 || c.xyz[1] < 0 || c.xyz[2] < 0 {
		return columns{}, fmt.Errorf("cannot find the columns x, y, z, and type")
	}
	if scaled && unscaled {
		return columns{}, fmt.Errorf("scaled and unscaled coordinates are mixed")
	}
	c.scaled = scaled
	return c, nil
}

// ReadFrame reads the next configuration of the trajectory. io.EOF is
// returned when there is none.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	var f Frame
	var atoms int
	var err error
	f.Step, atoms, f.Lo, f.Box, err = Header(r)
	if err == io.EOF {
		return f, err
	}
	if err != nil {
		return f, fmt.Errorf("Header: %w", err)
	}

	b, _ := r.ReadSlice('\n')
	cols, err := parseColumns(string(b))
	if err != nil {
		return f, err
	}

	f.IDs = make([]int, atoms)
	f.Types = make([]string, atoms)
	f.XYZ = make([][3]float64, atoms)
	for i := 0; i < atoms; i++ {
		b, err := r.ReadSlice('\n')
		if err != nil && !(err == io.EOF && len(b) > 0) {
			return f, fmt.Errorf("atom %d: %w", i, err)
		}

		fields := strings.Fields(string(b))
		if len(fields) != cols.len {
			return f, fmt.Errorf("number of columns don't match: %d (expected %d)", len(fields), cols.len)
		}

		f.IDs[i] = i + 1
		if cols.id >= 0 {
			f.IDs[i], err = strconv.Atoi(fields[cols.id])
			if err != nil {
				return f, fmt.Errorf("atom %d: %w", i, err)
			}
		}
		f.Types[i] = fields[cols.typ]
		for k := 0; k < 3; k++ {
			x, err := strconv.ParseFloat(fields[cols.xyz[k]], 64)
			if err != nil {
				return f, fmt.Errorf("atom %d: %w", i, err)
			}
			if cols.scaled {
				x = f.Lo[k] + x*f.Box[k]
			}
			f.XYZ[i][k] = x
		}
	}

	if cols.id >= 0 {
		sort.Sort(byID(f))
	}
	return f, nil
}

type byID Frame

func (f byID) Len() int           { return len(f.IDs) }
func (f byID) Less(i, j int) bool { return f.IDs[i] < f.IDs[j] }
func (f byID) Swap(i, j int) {
	f.IDs[i], f.IDs[j] = f.IDs[j], f.IDs[i]
	f.Types[i], f.Types[j] = f.Types[j], f.Types[i]
	f.XYZ[i], f.XYZ[j] = f.XYZ[j], f.XYZ[i]
}
