package energy

import (
	"fmt"
	"os"

	"github.com/kpotier/nonbonded/pkg/nonbonded"
	"github.com/pelletier/go-toml"
)

// ParticleType contains the parameters shared by every atom of a Lammps type.
type ParticleType struct {
	Charge  float64 `toml:"charge"`
	Sigma   float64 `toml:"sigma"`
	Epsilon float64 `toml:"epsilon"`
}

// ExceptionSpec is an exception as written in the force field file.
// Particles are zero-based indices in the order of the ids of the trajectory,
// or in the molecule when MoleculeSize is set.
type ExceptionSpec struct {
	Particles  []int   `toml:"particles"`
	ChargeProd float64 `toml:"charge_prod"`
	Sigma      float64 `toml:"sigma"`
	Epsilon    float64 `toml:"epsilon"`
}

// ForceField is the content of a force field file.
type ForceField struct {
	Method                  string  `toml:"method"`
	Cutoff                  float64 `toml:"cutoff"`
	UseSwitching            bool    `toml:"use_switching"`
	SwitchingDistance       float64 `toml:"switching_distance"`
	ReactionFieldDielectric float64 `toml:"reaction_field_dielectric"`
	EwaldTolerance          float64 `toml:"ewald_tolerance"`
	UseDispersionCorrection bool    `toml:"use_dispersion_correction"`

	// MoleculeSize, when it is not zero, repeats the exceptions for every
	// group of MoleculeSize consecutive particles.
	MoleculeSize int `toml:"molecule_size"`

	Types      map[string]ParticleType `toml:"types"`
	Exceptions []ExceptionSpec          `toml:"exceptions"`
}

// ReadForceField reads and parses a force field file. The file must be a
// TOML file.
func ReadForceField(path string) (ForceField, error) {
	f, err := os.Open(path)
	if err != nil {
		return ForceField{}, err
	}
	defer f.Close()

	var ff ForceField
	dec := toml.NewDecoder(f)
	err = dec.Decode(&ff)
	if err != nil {
		return ForceField{}, err
	}

	if len(ff.Types) == 0 {
		return ForceField{}, fmt.Errorf("no particle types")
	}
	for k, e := range ff.Exceptions {
		if len(e.Particles) != 2 {
			return ForceField{}, fmt.Errorf("exception %d: two particles are needed (got %d)", k, len(e.Particles))
		}
	}
	if ff.MoleculeSize < 0 {
		return ForceField{}, fmt.Errorf("negative molecule size")
	}

	return ff, nil
}

// Build returns the force field of the particles whose Lammps types are
// given, in the box of the first configuration.
func (f ForceField) Build(types []string, box [3]float64) (*nonbonded.ForceField, error) {
	method, err := nonbonded.ParseMethod(f.Method)
	if err != nil {
		return nil, fmt.Errorf("ParseMethod: %w", err)
	}

	ff := &nonbonded.ForceField{
		Particles:               make([]nonbonded.Particle, len(types)),
		Method:                  method,
		Cutoff:                  f.Cutoff,
		UseSwitching:            f.UseSwitching,
		SwitchingDistance:       f.SwitchingDistance,
		ReactionFieldDielectric: f.ReactionFieldDielectric,
		EwaldTolerance:          f.EwaldTolerance,
		UseDispersionCorrection: f.UseDispersionCorrection,
		Box:                     box,
	}

	for i, typ := range types {
		p, ok := f.Types[typ]
		if !ok {
			return nil, fmt.Errorf("atom %d: type `%s` isn't in the force field", i, typ)
		}
		ff.Particles[i] = nonbonded.Particle{Charge: p.Charge, Sigma: p.Sigma, Epsilon: p.Epsilon}
	}

	if f.MoleculeSize == 0 {
		ff.Exceptions = make([]nonbonded.Exception, 0, len(f.Exceptions))
		for _, e := range f.Exceptions {
			ff.Exceptions = append(ff.Exceptions, e.exception(0))
		}
		return ff, nil
	}

	if len(types)%f.MoleculeSize != 0 {
		return nil, fmt.Errorf("%d atoms aren't a multiple of the molecule size (%d)", len(types), f.MoleculeSize)
	}
	for k, e := range f.Exceptions {
		if e.Particles[0] >= f.MoleculeSize || e.Particles[1] >= f.MoleculeSize {
			return nil, fmt.Errorf("exception %d: particles %v outside of the molecule", k, e.Particles)
		}
	}
	ff.Exceptions = make([]nonbonded.Exception, 0, len(f.Exceptions)*len(types)/f.MoleculeSize)
	for off := 0; off < len(types); off += f.MoleculeSize {
		for _, e := range f.Exceptions {
			ff.Exceptions = append(ff.Exceptions, e.exception(off))
		}
	}

	return ff, nil
}

func (e ExceptionSpec) exception(off int) nonbonded.Exception {
	return nonbonded.Exception{
		P1:         off + e.Particles[0],
		P2:         off + e.Particles[1],
		ChargeProd: e.ChargeProd,
		Sigma:      e.Sigma,
		Epsilon:    e.Epsilon,
	}
}
