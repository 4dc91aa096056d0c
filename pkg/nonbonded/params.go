package nonbonded

import (
	"fmt"
	"math"
	"sort"
)

// Particle contains the nonbonded parameters of one particle. Sigma and
// Epsilon are the Lennard-Jones radius (nm) and well depth (kJ/mol), Charge is
// in elementary charges.
type Particle struct {
	Charge  float64
	Sigma   float64
	Epsilon float64
}

// Exception replaces the standard interaction between P1 and P2. The pair is
// excluded from the neighbor list, and it interacts with its own ChargeProd,
// Sigma and Epsilon if at least one of ChargeProd or Epsilon is not zero.
type Exception struct {
	P1, P2     int
	ChargeProd float64
	Sigma      float64
	Epsilon    float64
}

// ForceField is the static description given at setup time.
type ForceField struct {
	Particles  []Particle
	Exceptions []Exception

	Method Method
	Cutoff float64

	UseSwitching      bool
	SwitchingDistance float64

	// ReactionFieldDielectric is used by CutoffNonPeriodic and CutoffPeriodic.
	// DefaultReactionFieldDielectric is used when it is zero.
	ReactionFieldDielectric float64

	// EwaldTolerance is the target relative error of Ewald and PME.
	// DefaultEwaldTolerance is used when it is zero.
	EwaldTolerance float64

	UseDispersionCorrection bool

	// Box is the periodic box used to derive the Ewald and PME constants.
	Box [3]float64
}

// Default values of ForceField.
const (
	DefaultReactionFieldDielectric = 78.3
	DefaultEwaldTolerance          = 5e-4
)

// Exclusions contains, for each particle, the sorted indices of the
// particles it must not interact with through the standard pairwise sum. It
// is symmetric.
type Exclusions [][]int

// Excluded reports whether i and j are excluded.
func (e Exclusions) Excluded(i, j int) bool {
	l := e[i]
	k := sort.SearchInts(l, j)
	return k < len(l) && l[k] == j
}

// atomParams are the combining-rule-ready parameters of a particle: half
// the radius, twice the square root of the depth and the charge.
type atomParams struct {
	halfSigma float64
	sqrtEps   float64
	charge    float64
}

// pair14 is a retained exception. eps is four times the well depth.
type pair14 struct {
	i, j  int
	sigma float64
	eps   float64
	qq    float64
}

// Table is the parameter table built once from a ForceField. It is never
// modified after NewTable; UpdateParameters builds a new one.
type Table struct {
	atoms      []atomParams
	exclusions Exclusions
	exceptions []pair14
}

// NewTable builds the symmetric exclusion set, the reduced exception list
// and the per-particle parameters.
func NewTable(particles []Particle, exceptions []Exception) (*Table, error) {
	n := len(particles)
	t := &Table{
		atoms:      make([]atomParams, n),
		exclusions: make(Exclusions, n),
	}

	for i, p := range particles {
		if p.Sigma < 0 || p.Epsilon < 0 {
			return nil, fmt.Errorf("particle %d (sigma %g, epsilon %g): %w",
				i, p.Sigma, p.Epsilon, ErrInvalidParameter)
		}
		t.atoms[i] = atomParams{
			halfSigma: 0.5 * p.Sigma,
			sqrtEps:   2 * math.Sqrt(p.Epsilon),
			charge:    p.Charge,
		}
	}

	for k, e := range exceptions {
		if e.P1 < 0 || e.P1 >= n || e.P2 < 0 || e.P2 >= n || e.P1 == e.P2 {
			return nil, fmt.Errorf("exception %d (%d-%d): %w", k, e.P1, e.P2, ErrInvalidParameter)
		}
		t.exclusions[e.P1] = append(t.exclusions[e.P1], e.P2)
		t.exclusions[e.P2] = append(t.exclusions[e.P2], e.P1)

		if e.ChargeProd != 0 || e.Epsilon != 0 {
			t.exceptions = append(t.exceptions, pair14{
				i: e.P1, j: e.P2,
				sigma: e.Sigma,
				eps:   4 * e.Epsilon,
				qq:    e.ChargeProd,
			})
		}
	}

	for i, l := range t.exclusions {
		t.exclusions[i] = sortUnique(l)
	}

	return t, nil
}

// NumParticles returns the number of particles.
func (t *Table) NumParticles() int { return len(t.atoms) }

// NumExceptions returns the number of retained exceptions.
func (t *Table) NumExceptions() int { return len(t.exceptions) }

// Exclusions returns the exclusion set. It must not be modified.
func (t *Table) Exclusions() Exclusions { return t.exclusions }

// Retained returns the number of exceptions with a non-zero charge product
// or well depth.
func Retained(exceptions []Exception) int {
	var n int
	for _, e := range exceptions {
		if e.ChargeProd != 0 || e.Epsilon != 0 {
			n++
		}
	}
	return n
}

func sortUnique(l []int) []int {
	if len(l) < 2 {
		return l
	}
	sort.Ints(l)
	out := l[:1]
	for _, v := range l[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
