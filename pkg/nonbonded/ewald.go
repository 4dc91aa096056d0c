package nonbonded

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// kVectors returns the reciprocal vectors of the half space rx > 0, or
// rx = 0 and ry > 0, or rx = ry = 0 and rz > 0, bounded by kmax.
func kVectors(kmax [3]int, box [3]float64) []r3.Vec {
	var ks []r3.Vec
	for rx := 0; rx < kmax[0]; rx++ {
		for ry := 1 - kmax[1]; ry < kmax[1]; ry++ {
			for rz := 1 - kmax[2]; rz < kmax[2]; rz++ {
				if rx == 0 && (ry < 0 || (ry == 0 && rz <= 0)) {
					continue
				}
				ks = append(ks, r3.Vec{
					X: 2 * math.Pi * float64(rx) / box[0],
					Y: 2 * math.Pi * float64(ry) / box[1],
					Z: 2 * math.Pi * float64(rz) / box[2],
				})
			}
		}
	}
	return ks
}

// ewaldReciprocal adds the reciprocal-space Ewald sum. The k-vectors are
// shared between the workers.
func ewaldReciprocal(acc *accumulator, tab *Table, pos [][3]float64, box [3]float64, alpha float64, kmax [3]int, workers int) error {
	ks := kVectors(kmax, box)
	n := len(pos)
	withForces := acc.forces != nil
	parts := newAccumulators(chunks(workers, len(ks)), n, withForces)

	volume := box[0] * box[1] * box[2]
	coeff := 4 * math.Pi * coulomb / volume
	factor := -1 / (4 * alpha * alpha)

	parallel(workers, len(ks), func(w, lo, hi int) {
		a := &parts[w]
		sin := make([]float64, n)
		cos := make([]float64, n)
		for _, k := range ks[lo:hi] {
			k2 := r3.Norm2(k)
			ak := coeff * math.Exp(k2*factor) / k2

			var cs, ss float64
			for i, p := range pos {
				s, c := math.Sincos(r3.Dot(k, r3.Vec{X: p[0], Y: p[1], Z: p[2]}))
				q := tab.atoms[i].charge
				sin[i], cos[i] = s, c
				cs += q * c
				ss += q * s
			}

			a.energy += ak * (cs*cs + ss*ss)
			if withForces {
				for i := range pos {
					f := 2 * ak * tab.atoms[i].charge * (cs*sin[i] - ss*cos[i])
					a.add(i, [3]float64{f * k.X, f * k.Y, f * k.Z})
				}
			}
		}
	})

	return acc.merge(parts)
}
