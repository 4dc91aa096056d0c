package util

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header corresponds to the lines specific to a Lammps trajectory file. It
// returns the timestep, the number of atoms, the lower bounds of the box and
// the size of the box. The line announcing the atoms (ITEM: ATOMS ...) is not
// read. io.EOF is returned if the reader is at the end of the trajectory.
func Header(r *bufio.Reader) (step, atoms int, lo, box [3]float64, err error) {
	b, err := r.ReadSlice('\n')
	if err == io.EOF && len(strings.TrimSpace(string(b))) == 0 {
		return 0, 0, lo, box, io.EOF
	}
	if !strings.HasPrefix(string(b), "ITEM: TIMESTEP") {
		return 0, 0, lo, box, fmt.Errorf("expected ITEM: TIMESTEP, got %q", strings.TrimSpace(string(b)))
	}

	step, err = readInt(r)
	if err != nil {
		return 0, 0, lo, box, fmt.Errorf("timestep: %w", err)
	}

	r.ReadSlice('\n')
	atoms, err = readInt(r)
	if err != nil {
		return 0, 0, lo, box, fmt.Errorf("number of atoms: %w", err)
	}

	r.ReadSlice('\n')
	lo, box, err = HeaderBox(r)
	return
}

// HeaderBox returns the lower bounds and the size of the box. Triclinic
// tilt factors, when present, are ignored.
func HeaderBox(r *bufio.Reader) (lo, box [3]float64, err error) {
	for k := 0; k < 3; k++ {
		b, _ := r.ReadSlice('\n')

		fields := strings.Fields(string(b))
		if len(fields) < 2 {
			err = fmt.Errorf("unable to get the size of the box")
			return
		}

		var lmax float64
		lo[k], err = strconv.ParseFloat(fields[0], 64)
		if err == nil {
			lmax, err = strconv.ParseFloat(fields[1], 64)
		}
		if err != nil {
			err = fmt.Errorf("unable to get the size of the box: %w", err)
			return
		}

		box[k] = lmax - lo[k]
	}

	return
}

func readInt(r *bufio.Reader) (int, error) {
	b, _ := r.ReadSlice('\n')
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

// SkipCfg discards the next x configurations without parsing the atoms. The
// number of atoms is read from every header, so it may change between
// configurations.
func SkipCfg(r *bufio.Reader, x int) error {
	for c := 0; c < x; c++ {
		_, atoms, _, _, err := Header(r)
		if err != nil {
			return fmt.Errorf("Header (cfg %d): %w", c, err)
		}

		for i := 0; i <= atoms; i++ {
			b, err := r.ReadSlice('\n')
			if err != nil && !(err == io.EOF && i == atoms && len(b) > 0) {
				return fmt.Errorf("cfg %d: %w", c, err)
			}
		}
	}

	return nil
}
