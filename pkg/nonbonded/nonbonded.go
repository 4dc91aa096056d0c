// Package nonbonded evaluates the Lennard-Jones and Coulomb interactions
// between the particles of a molecular system, with no cutoff, a cutoff
// (reaction field), or periodic boundary conditions with Ewald or
// particle-mesh Ewald electrostatics.
//
// An Evaluator is created once from a ForceField with New. It only holds the
// setup-time state; positions, box and forces are given to Execute at every
// step.
package nonbonded

import (
	"fmt"
	"runtime"
	"sync"
)

// Include selects the contributions computed by Execute. Contributions not
// selected are exactly zero.
type Include struct {
	Forces     bool
	Energy     bool
	Direct     bool
	Reciprocal bool
}

// All computes everything.
func All() Include {
	return Include{Forces: true, Energy: true, Direct: true, Reciprocal: true}
}

// Options of an Evaluator.
type Options struct {
	// Workers is the number of goroutines used by the neighbor list and the
	// pairwise sums. runtime.NumCPU() is used when it is zero.
	Workers int
}

// Evaluator computes the nonbonded energy and forces. It is safe for
// concurrent use.
type Evaluator struct {
	mu         sync.RWMutex
	tab        *Table
	dispersion float64

	lr      LongRange
	kernel  *pairKernel
	moduli  [3][]float64
	workers int

	lists sync.Pool
}

// New builds the parameter table and derives the long-range constants of ff.
func New(ff *ForceField, opts Options) (*Evaluator, error) {
	lr, err := SelectLongRange(ff)
	if err != nil {
		return nil, fmt.Errorf("SelectLongRange: %w", err)
	}

	tab, err := NewTable(ff.Particles, ff.Exceptions)
	if err != nil {
		return nil, fmt.Errorf("NewTable: %w", err)
	}

	e := &Evaluator{
		tab:        tab,
		dispersion: dispersion(ff, lr),
		lr:         lr,
		kernel:     newPairKernel(lr),
		workers:    opts.Workers,
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if lr.Method == PME {
		for k := 0; k < 3; k++ {
			e.moduli[k] = pmeModuli(lr.Grid[k], pmeOrder)
		}
	}
	e.lists.New = func() interface{} { return new(NeighborList) }

	return e, nil
}

func dispersion(ff *ForceField, lr LongRange) float64 {
	if !ff.UseDispersionCorrection || !lr.Method.Periodic() {
		return 0
	}
	return DispersionCoefficient(ff.Particles, lr)
}

// LongRange returns the constants derived at setup.
func (e *Evaluator) LongRange() LongRange { return e.lr }

// NumParticles returns the number of particles.
func (e *Evaluator) NumParticles() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tab.NumParticles()
}

// DispersionCoefficient returns the coefficient of the dispersion
// correction, zero when it is disabled or the method is not periodic.
func (e *Evaluator) DispersionCoefficient() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dispersion
}

// Execute computes the selected contributions for the positions pos in the
// box. Forces are added to forces, which must have one entry per particle
// when inc.Forces is set. The energy is returned when inc.Energy is set.
// Nothing is written to forces if an error is returned.
func (e *Evaluator) Execute(pos [][3]float64, box [3]float64, forces [][3]float64, inc Include) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tab, lr := e.tab, e.lr
	n := tab.NumParticles()
	if len(pos) != n {
		return 0, fmt.Errorf("%d positions for %d particles: %w", len(pos), n, ErrInvalidParameter)
	}
	if inc.Forces && len(forces) != n {
		return 0, fmt.Errorf("%d forces for %d particles: %w", len(forces), n, ErrInvalidParameter)
	}

	periodic := lr.Method.Periodic()
	if periodic {
		for k := 0; k < 3; k++ {
			if box[k] < minBoxFactor*lr.Cutoff {
				return 0, fmt.Errorf("box %v, cutoff %g: %w", box, lr.Cutoff, ErrBoxTooSmall)
			}
		}
	}

	wrapped := Wrap(nil, pos, box, periodic)
	var acc accumulator
	if inc.Forces {
		acc.forces = make([]float64, 3*n)
	}

	if inc.Direct {
		nl := e.lists.Get().(*NeighborList)
		defer e.lists.Put(nl)

		box32 := [3]float32{float32(box[0]), float32(box[1]), float32(box[2])}
		err := nl.Build(Reduce(nil, wrapped), tab.exclusions, box32, periodic, lr.Cutoff, e.workers)
		if err != nil {
			return 0, fmt.Errorf("Build: %w", err)
		}

		err = evalPairs(&acc, nl.Pairs, wrapped, box, tab, e.kernel, e.workers)
		if err != nil {
			return 0, fmt.Errorf("evalPairs: %w", err)
		}

		err = evalExceptions(&acc, tab, wrapped, box, periodic)
		if err != nil {
			return 0, fmt.Errorf("evalExceptions: %w", err)
		}

		if lr.Method == Ewald || lr.Method == PME {
			evalExclusionCorrection(&acc, tab, wrapped, box, lr.Alpha)
		}
		if periodic {
			acc.energy += e.dispersion / (box[0] * box[1] * box[2])
		}
	}

	if inc.Reciprocal {
		switch lr.Method {
		case Ewald:
			err := ewaldReciprocal(&acc, tab, wrapped, box, lr.Alpha, lr.KMax, e.workers)
			if err != nil {
				return 0, fmt.Errorf("ewaldReciprocal: %w", err)
			}
			acc.energy += selfEnergy(tab, lr.Alpha)
		case PME:
			pmeReciprocal(&acc, tab, wrapped, box, lr.Alpha, lr.Grid, e.moduli, e.workers)
			acc.energy += selfEnergy(tab, lr.Alpha)
		}
	}

	if inc.Forces {
		for i := range forces {
			forces[i][0] += acc.forces[3*i]
			forces[i][1] += acc.forces[3*i+1]
			forces[i][2] += acc.forces[3*i+2]
		}
	}
	if !inc.Energy {
		return 0, nil
	}
	return acc.energy, nil
}

// UpdateParameters replaces the particle and exception parameters and the
// dispersion coefficient with the ones of ff. The method, cutoff and other
// settings of ff are ignored. It fails, and changes nothing, if the number of
// particles or the number of non-excluded exceptions differ from the ones
// given to New.
func (e *Evaluator) UpdateParameters(ff *ForceField) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ff.Particles) != e.tab.NumParticles() {
		return fmt.Errorf("UpdateParameters: %d instead of %d: %w",
			len(ff.Particles), e.tab.NumParticles(), ErrParticleCount)
	}
	if r := Retained(ff.Exceptions); r != e.tab.NumExceptions() {
		return fmt.Errorf("UpdateParameters: %d instead of %d: %w",
			r, e.tab.NumExceptions(), ErrExceptionCount)
	}

	tab, err := NewTable(ff.Particles, ff.Exceptions)
	if err != nil {
		return fmt.Errorf("UpdateParameters: NewTable: %w", err)
	}

	e.tab = tab
	e.dispersion = dispersion(ff, e.lr)
	return nil
}
