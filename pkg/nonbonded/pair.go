package nonbonded

import (
	"fmt"
	"math"
)

// pairKernel computes the direct-space interaction of two particles for the
// active method.
type pairKernel struct {
	lr       LongRange
	periodic bool
	cutoff2  float64
}

func newPairKernel(lr LongRange) *pairKernel {
	return &pairKernel{
		lr:       lr,
		periodic: lr.Method.Periodic(),
		cutoff2:  lr.Cutoff * lr.Cutoff,
	}
}

// eval returns the energy of the pair at the squared distance r2 and the
// factor f such that the force on a is f times (xa - xb).
func (k *pairKernel) eval(a, b atomParams, r2 float64) (energy, f float64) {
	r := math.Sqrt(r2)
	inv := 1 / r

	// Lennard-Jones.
	sig := a.halfSigma + b.halfSigma
	eps := a.sqrtEps * b.sqrtEps
	sr2 := sig * inv
	sr2 *= sr2
	sr6 := sr2 * sr2 * sr2
	eLJ := eps * (sr6 - 1) * sr6
	dLJ := eps * (12*sr6 - 6) * sr6 // -r dE/dr
	// Only the Lennard-Jones term is switched, Coulomb is left untouched.
	if k.lr.UseSwitching && r > k.lr.SwitchingDistance {
		s, ds := switchingFn(r, k.lr.SwitchingDistance, k.lr.Cutoff)
		dLJ = dLJ*s - eLJ*ds*r
		eLJ *= s
	}

	// Coulomb.
	var eC, dC float64
	if qq := coulomb * a.charge * b.charge; qq != 0 {
		switch k.lr.Method {
		case NoCutoff:
			eC = qq * inv
			dC = eC
		case CutoffNonPeriodic, CutoffPeriodic:
			eC = qq * (inv + k.lr.krf*r2 - k.lr.crf)
			dC = qq * (inv - 2*k.lr.krf*r2)
		case Ewald, PME:
			ar := k.lr.Alpha * r
			erfc := math.Erfc(ar)
			eC = qq * erfc * inv
			dC = qq * (erfc + 2*ar/math.SqrtPi*math.Exp(-ar*ar)) * inv
		}
	}

	return eLJ + eC, (dLJ + dC) / r2
}

// evalPairs sums the interactions of the neighbor pairs into acc. The pairs
// are shared between the workers in contiguous chunks, each worker writes
// into its own accumulator.
func evalPairs(acc *accumulator, pairs [][2]int, pos [][3]float64, box [3]float64, tab *Table, k *pairKernel, workers int) error {
	withForces := acc.forces != nil
	parts := newAccumulators(chunks(workers, len(pairs)), len(pos), withForces)

	parallel(workers, len(pairs), func(w, lo, hi int) {
		a := &parts[w]
		for _, p := range pairs[lo:hi] {
			i, j := p[0], p[1]
			d := Delta(pos[i], pos[j], box, k.periodic)
			r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
			if r2 > k.cutoff2 {
				continue
			}
			if r2 == 0 {
				a.err = fmt.Errorf("particles %d and %d: %w", i, j, ErrOverlap)
				return
			}

			e, f := k.eval(tab.atoms[i], tab.atoms[j], r2)
			a.energy += e
			if withForces {
				fi := [3]float64{f * d[0], f * d[1], f * d[2]}
				a.add(i, fi)
				a.add(j, [3]float64{-fi[0], -fi[1], -fi[2]})
			}
		}
	})

	return acc.merge(parts)
}
