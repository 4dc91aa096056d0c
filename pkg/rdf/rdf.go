// Package rdf calculates the radial distribution function and its integral,
// the running coordination number, with a cell list.
package rdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sync"

	"github.com/kpotier/nonbonded/pkg/nonbonded"
	"github.com/kpotier/nonbonded/pkg/util"

	"github.com/pelletier/go-toml"
	"gonum.org/v1/gonum/floats"
)

// Type is the type of calculation.
var Type = "rdf"

// RDF is a structure containing the parameters that can be parsed from a
// TOML configuration file. This structure can be instanced through the New
// method. CfgStart must be lower than CfgEnd. Only the atoms whose types are
// in Types are taken into account, all of them if it is empty. The box must
// be larger than twice RMax.
type RDF struct {
	FileIn  string `toml:"rdf.file_in"`
	FileOut string `toml:"rdf.file_out"`

	CfgStart int `toml:"rdf.cfg_start"`
	CfgEnd   int `toml:"rdf.cfg_end"`

	Types []string `toml:"rdf.types"`

	RMax float64 `toml:"rdf.rmax"`
	Dr   float64 `toml:"rdf.dr"`

	bins  int
	types map[string]bool

	hstg  []float64
	atoms int
	vol   float64

	cfg int
	err error
	mux sync.Mutex
	wg  sync.WaitGroup
}

// New returns an instance of the RDF structure. It reads and parses the
// configuration file given in argument. The file must be a TOML file.
func New(path string) (*RDF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var g RDF
	dec := toml.NewDecoder(f)
	err = dec.Decode(&g)
	if err != nil {
		return nil, err
	}

	if g.CfgStart >= g.CfgEnd {
		return nil, errors.New("CfgStart is greater or equal than CfgEnd")
	}
	if g.CfgStart < 0 {
		return nil, errors.New("CfgStart is negative")
	}
	if g.Dr <= 0 {
		return nil, errors.New("Dr must be positive")
	}

	g.bins = int(g.RMax / g.Dr)
	if g.bins <= 1 {
		return nil, errors.New("the number of bins must be greater than 1")
	}

	if len(g.Types) > 0 {
		g.types = make(map[string]bool, len(g.Types))
		for _, t := range g.Types {
			g.types[t] = true
		}
	}
	g.hstg = make([]float64, g.bins)
	g.atoms = -1

	return &g, nil
}

// Start performs the calculation. It is a thread blocking method. This
// calculation will use all the threads available, one configuration per
// thread.
func (g *RDF) Start() error {
	in, err := util.Open(g.FileIn)
	if err != nil {
		return err
	}
	defer in.Close()
	r := bufio.NewReader(in)

	err = util.SkipCfg(r, g.CfgStart)
	if err != nil {
		return fmt.Errorf("SkipCfg: %w", err)
	}
	g.cfg = g.CfgStart

	for i := 0; i < (runtime.NumCPU() - 1); i++ {
		g.wg.Add(1)
		go g.start(r)
	}

	g.wg.Add(1)
	g.start(r)
	g.wg.Wait()

	if g.err != nil {
		return g.err
	}

	out, err := util.Write(g.FileOut, g)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()
	g.write(w)

	return nil
}

func (g *RDF) start(r *bufio.Reader) {
	defer g.wg.Done()

	var nl nonbonded.NeighborList
	for {
		g.mux.Lock()
		if g.cfg >= g.CfgEnd || g.err != nil {
			g.mux.Unlock()
			return
		}

		cfg := g.cfg
		frame, err := util.ReadFrame(r)
		g.cfg++
		if err != nil {
			g.setErr(fmt.Errorf("ReadFrame (cfg %d): %w", cfg, err))
			g.mux.Unlock()
			return
		}
		g.mux.Unlock()

		err = g.calc(&nl, frame)
		if err != nil {
			g.mux.Lock()
			g.setErr(fmt.Errorf("calc (cfg %d): %w", cfg, err))
			g.mux.Unlock()
			return
		}
	}
}

// setErr keeps the first error. The mutex must be held.
func (g *RDF) setErr(err error) {
	if g.err == nil {
		g.err = err
	}
}

// calc increments the histogram with the pairs of a configuration. Every
// pair is counted once for each of its atoms.
func (g *RDF) calc(nl *nonbonded.NeighborList, f util.Frame) error {
	pos := f.XYZ
	if g.types != nil {
		pos = make([][3]float64, 0, len(f.XYZ))
		for i, t := range f.Types {
			if g.types[t] {
				pos = append(pos, f.XYZ[i])
			}
		}
	}

	wrapped := nonbonded.Wrap(nil, pos, f.Box, true)
	box32 := [3]float32{float32(f.Box[0]), float32(f.Box[1]), float32(f.Box[2])}
	err := nl.Build(nonbonded.Reduce(nil, wrapped), nil, box32, true, g.RMax, 1)
	if err != nil {
		return fmt.Errorf("Build: %w", err)
	}

	hstg := make([]float64, g.bins)
	for _, p := range nl.Pairs {
		d := nonbonded.Delta(wrapped[p[0]], wrapped[p[1]], f.Box, true)
		index := int(math.Sqrt(d[0]*d[0]+d[1]*d[1]+d[2]*d[2]) / g.Dr)
		if index < g.bins {
			hstg[index] += 2
		}
	}

	g.mux.Lock()
	defer g.mux.Unlock()
	if g.atoms >= 0 && g.atoms != len(pos) {
		return fmt.Errorf("%d atoms instead of %d", len(pos), g.atoms)
	}
	g.atoms = len(pos)
	floats.Add(g.hstg, hstg)
	g.vol += f.Box[0] * f.Box[1] * f.Box[2]
	return nil
}

// write writes the results of this calculation into a file.
func (g *RDF) write(w io.Writer) {
	nbCfg := float64(g.CfgEnd - g.CfgStart)
	atoms := float64(g.atoms)
	density := atoms / (g.vol / nbCfg)

	fmt.Fprint(w, "dist intg hstg\n")

	var intg float64
	for i, count := range g.hstg {
		// Volume of the bin
		vol := 4. / 3. * math.Pi * (util.Pow(float64(i+1)*g.Dr, 3) - util.Pow(float64(i)*g.Dr, 3))

		perAtom := count / (nbCfg * atoms)
		intg += perAtom
		fmt.Fprint(w, (float64(i)+0.5)*g.Dr, " ", intg, " ", perAtom/(vol*density), "\n")
	}
}
