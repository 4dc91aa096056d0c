// Package energy calculates the nonbonded energy and forces of every
// configuration of a trajectory.
package energy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kpotier/nonbonded/pkg/nonbonded"
	"github.com/kpotier/nonbonded/pkg/util"

	"github.com/pelletier/go-toml"
)

// Type is the type of calculation.
var Type = "energy"

// Energy is a structure containing the parameters that can be parsed from a
// TOML configuration file. This structure can be instanced through the New
// method. CfgStart must be lower than CfgEnd.
//
// Scale multiplies the coordinates and the box of the trajectory, e.g. 0.1 to
// convert Angstroms into nanometers. When Split is set, the direct and the
// reciprocal parts are written separately. When Forces is set, the largest
// force of every configuration is written.
type Energy struct {
	FileIn     string `toml:"energy.file_in"`
	FileOut    string `toml:"energy.file_out"`
	ForceField string `toml:"energy.force_field"`

	CfgStart int `toml:"energy.cfg_start"`
	CfgEnd   int `toml:"energy.cfg_end"`
	Spacing  int `toml:"energy.spacing"`

	Scale   float64 `toml:"energy.scale"`
	Split   bool    `toml:"energy.split"`
	Forces  bool    `toml:"energy.forces"`
	Threads int     `toml:"energy.threads"`

	ff ForceField
}

// result of one configuration.
type result struct {
	cfg, step int

	energy, direct, reciprocal float64
	fmax                       float64
}

// New returns an instance of the Energy structure. It reads and parses the
// configuration file given in argument and the force field file it refers to.
// Both must be TOML files.
func New(path string) (*Energy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var e Energy
	dec := toml.NewDecoder(f)
	err = dec.Decode(&e)
	if err != nil {
		return nil, err
	}

	if e.CfgStart >= e.CfgEnd {
		return nil, errors.New("CfgStart is greater or equal than CfgEnd")
	}
	if e.CfgStart < 0 {
		return nil, errors.New("CfgStart is negative")
	}
	if e.Spacing == 0 {
		e.Spacing = 1
	}
	if e.Spacing < 0 {
		return nil, errors.New("Spacing is negative")
	}
	if e.Scale == 0 {
		e.Scale = 1
	}
	if e.Scale < 0 {
		return nil, errors.New("Scale is negative")
	}

	e.ff, err = ReadForceField(e.ForceField)
	if err != nil {
		return nil, fmt.Errorf("ReadForceField: %w", err)
	}

	return &e, nil
}

// Start performs the calculation. It is a thread blocking method. This
// calculation uses Threads goroutines, or all the threads available when it
// is zero.
func (e *Energy) Start() error {
	in, err := util.Open(e.FileIn)
	if err != nil {
		return err
	}
	defer in.Close()
	r := bufio.NewReader(in)

	err = util.SkipCfg(r, e.CfgStart)
	if err != nil {
		return fmt.Errorf("SkipCfg: %w", err)
	}

	out, err := util.Write(e.FileOut, e)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()
	e.writeHeader(w)

	var ev *nonbonded.Evaluator
	for cfg := e.CfgStart; cfg < e.CfgEnd; cfg += e.Spacing {
		if cfg > e.CfgStart {
			err = util.SkipCfg(r, e.Spacing-1)
			if err != nil {
				return fmt.Errorf("SkipCfg (cfg %d): %w", cfg, err)
			}
		}

		frame, err := util.ReadFrame(r)
		if err != nil {
			return fmt.Errorf("ReadFrame (cfg %d): %w", cfg, err)
		}
		e.scale(&frame)

		if ev == nil {
			ff, err := e.ff.Build(frame.Types, frame.Box)
			if err != nil {
				return fmt.Errorf("Build: %w", err)
			}
			ev, err = nonbonded.New(ff, nonbonded.Options{Workers: e.Threads})
			if err != nil {
				return fmt.Errorf("nonbonded.New: %w", err)
			}
		}

		res, err := e.calc(ev, frame)
		if err != nil {
			return fmt.Errorf("calc (cfg %d): %w", cfg, err)
		}
		res.cfg = cfg
		e.write(w, res)
	}

	return nil
}

func (e *Energy) scale(f *util.Frame) {
	if e.Scale == 1 {
		return
	}
	for k := 0; k < 3; k++ {
		f.Box[k] *= e.Scale
		f.Lo[k] *= e.Scale
	}
	for i := range f.XYZ {
		for k := 0; k < 3; k++ {
			f.XYZ[i][k] *= e.Scale
		}
	}
}

// calc evaluates one configuration.
func (e *Energy) calc(ev *nonbonded.Evaluator, f util.Frame) (res result, err error) {
	res.step = f.Step

	var forces [][3]float64
	if e.Forces {
		forces = make([][3]float64, len(f.XYZ))
	}

	if e.Split {
		inc := nonbonded.Include{Forces: e.Forces, Energy: true, Direct: true}
		res.direct, err = ev.Execute(f.XYZ, f.Box, forces, inc)
		if err != nil {
			return res, fmt.Errorf("Execute (direct): %w", err)
		}

		inc.Direct, inc.Reciprocal = false, true
		res.reciprocal, err = ev.Execute(f.XYZ, f.Box, forces, inc)
		if err != nil {
			return res, fmt.Errorf("Execute (reciprocal): %w", err)
		}
		res.energy = res.direct + res.reciprocal
	} else {
		inc := nonbonded.Include{Forces: e.Forces, Energy: true, Direct: true, Reciprocal: true}
		res.energy, err = ev.Execute(f.XYZ, f.Box, forces, inc)
		if err != nil {
			return res, fmt.Errorf("Execute: %w", err)
		}
	}

	for _, v := range forces {
		res.fmax = math.Max(res.fmax, math.Sqrt(v[0]*v[0]+v[1]*v[1]+v[2]*v[2]))
	}
	return res, nil
}

func (e *Energy) writeHeader(w io.Writer) {
	fmt.Fprint(w, "cfg step energy")
	if e.Split {
		fmt.Fprint(w, " direct reciprocal")
	}
	if e.Forces {
		fmt.Fprint(w, " fmax")
	}
	fmt.Fprint(w, "\n")
}

// write writes the results of a configuration into a file.
func (e *Energy) write(w io.Writer, res result) {
	fmt.Fprint(w, res.cfg, " ", res.step, " ", res.energy)
	if e.Split {
		fmt.Fprint(w, " ", res.direct, " ", res.reciprocal)
	}
	if e.Forces {
		fmt.Fprint(w, " ", res.fmax)
	}
	fmt.Fprint(w, "\n")
}
