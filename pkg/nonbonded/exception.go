package nonbonded

import (
	"fmt"
	"math"
)

// evalExceptions sums the retained exceptions. They use their own
// parameters and the plain Coulomb potential, without cutoff nor switching.
func evalExceptions(acc *accumulator, tab *Table, pos [][3]float64, box [3]float64, periodic bool) error {
	for _, p := range tab.exceptions {
		d := Delta(pos[p.i], pos[p.j], box, periodic)
		r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
		if r2 == 0 {
			return fmt.Errorf("exception %d-%d: %w", p.i, p.j, ErrOverlap)
		}

		inv := 1 / math.Sqrt(r2)
		sr2 := p.sigma * inv
		sr2 *= sr2
		sr6 := sr2 * sr2 * sr2
		qq := coulomb * p.qq * inv

		acc.energy += p.eps*(sr6-1)*sr6 + qq
		if acc.forces != nil {
			f := (p.eps*(12*sr6-6)*sr6 + qq) / r2
			fi := [3]float64{f * d[0], f * d[1], f * d[2]}
			acc.add(p.i, fi)
			acc.add(p.j, [3]float64{-fi[0], -fi[1], -fi[2]})
		}
	}
	return nil
}

// evalExclusionCorrection removes from the Ewald energy the interactions of
// the excluded pairs, which the reciprocal sum includes.
func evalExclusionCorrection(acc *accumulator, tab *Table, pos [][3]float64, box [3]float64, alpha float64) {
	for i, l := range tab.exclusions {
		for _, j := range l {
			if j <= i {
				continue
			}
			qq := coulomb * tab.atoms[i].charge * tab.atoms[j].charge
			if qq == 0 {
				continue
			}

			d := Delta(pos[i], pos[j], box, true)
			r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
			r := math.Sqrt(r2)
			ar := alpha * r
			if ar <= 1e-6 {
				acc.energy -= qq * 2 * alpha / math.SqrtPi
				continue
			}

			erf := math.Erf(ar)
			acc.energy -= qq * erf / r
			if acc.forces != nil {
				f := qq * (2*ar/math.SqrtPi*math.Exp(-ar*ar) - erf) / (r2 * r)
				fi := [3]float64{f * d[0], f * d[1], f * d[2]}
				acc.add(i, fi)
				acc.add(j, [3]float64{-fi[0], -fi[1], -fi[2]})
			}
		}
	}
}

// selfEnergy is the Ewald self-interaction term.
func selfEnergy(tab *Table, alpha float64) float64 {
	var q2 float64
	for _, a := range tab.atoms {
		q2 += a.charge * a.charge
	}
	return -coulomb * alpha / math.SqrtPi * q2
}
