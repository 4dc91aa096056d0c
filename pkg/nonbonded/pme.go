package nonbonded

import (
	"math"
	"math/cmplx"
)

// pmeModuli returns the squared moduli of the Fourier transform of the
// B-spline of the given order sampled on a grid of n points.
func pmeModuli(n, order int) []float64 {
	data := make([]float64, order)
	data[0] = 1
	for k := 3; k <= order; k++ {
		div := 1 / float64(k-1)
		data[k-1] = 0
		for l := 1; l < k-1; l++ {
			data[k-l-1] = div * (float64(l)*data[k-l-2] + float64(k-l)*data[k-l-1])
		}
		data[0] *= div
	}

	arr := make([]float64, n)
	for i := 1; i <= order && i < n; i++ {
		arr[i] = data[i-1]
	}

	mod := make([]float64, n)
	for i := range mod {
		var sc, ss float64
		for j, v := range arr {
			s, c := math.Sincos(2 * math.Pi * float64(i*j) / float64(n))
			sc += v * c
			ss += v * s
		}
		mod[i] = sc*sc + ss*ss
	}
	for i, v := range mod {
		if v < 1e-7 {
			mod[i] = 0.5 * (mod[(i-1+n)%n] + mod[(i+1)%n])
		}
	}
	return mod
}

// bspline fills theta and dtheta with the B-spline weights (and their
// derivatives with respect to the grid coordinate) of a particle at the
// fractional offset dr of its base grid point.
func bspline(theta, dtheta []float64, dr float64) {
	n := len(theta)
	theta[n-1] = 0
	theta[1] = dr
	theta[0] = 1 - dr
	for j := 3; j < n; j++ {
		div := 1 / float64(j-1)
		theta[j-1] = div * dr * theta[j-2]
		for k := 1; k < j-1; k++ {
			theta[j-k-1] = div * ((dr+float64(k))*theta[j-k-2] + (float64(j-k)-dr)*theta[j-k-1])
		}
		theta[0] = div * (1 - dr) * theta[0]
	}

	dtheta[0] = -theta[0]
	for j := 1; j < n; j++ {
		dtheta[j] = theta[j-1] - theta[j]
	}

	div := 1 / float64(n-1)
	theta[n-1] = div * dr * theta[n-2]
	for k := 1; k < n-1; k++ {
		theta[n-k-1] = div * ((dr+float64(k))*theta[n-k-2] + (float64(n-k)-dr)*theta[n-k-1])
	}
	theta[0] = div * (1 - dr) * theta[0]
}

// pmeSplines are the interpolation weights of every particle.
type pmeSplines struct {
	base   [][3]int
	theta  [][3][pmeOrder]float64
	dtheta [][3][pmeOrder]float64
}

func newPMESplines(pos [][3]float64, box [3]float64, grid [3]int) *pmeSplines {
	s := &pmeSplines{
		base:   make([][3]int, len(pos)),
		theta:  make([][3][pmeOrder]float64, len(pos)),
		dtheta: make([][3][pmeOrder]float64, len(pos)),
	}
	for i, p := range pos {
		for k := 0; k < 3; k++ {
			frac := p[k] / box[k]
			fr := float64(grid[k]) * (frac - math.Floor(frac))
			ti := int(fr)
			s.base[i][k] = ti % grid[k]
			bspline(s.theta[i][k][:], s.dtheta[i][k][:], fr-float64(ti))
		}
	}
	return s
}

// pmeReciprocal adds the reciprocal-space sum computed with the smooth
// particle-mesh Ewald method.
func pmeReciprocal(acc *accumulator, tab *Table, pos [][3]float64, box [3]float64, alpha float64, grid [3]int, moduli [3][]float64, workers int) {
	nx, ny, nz := grid[0], grid[1], grid[2]
	sp := newPMESplines(pos, box, grid)
	q := make([]complex128, nx*ny*nz)

	// Spread the charges.
	for i := range pos {
		charge := tab.atoms[i].charge
		if charge == 0 {
			continue
		}
		th := &sp.theta[i]
		b := sp.base[i]
		for ix := 0; ix < pmeOrder; ix++ {
			x := (b[0] + ix) % nx
			wx := charge * th[0][ix]
			for iy := 0; iy < pmeOrder; iy++ {
				y := (b[1] + iy) % ny
				wxy := wx * th[1][iy]
				row := (x*ny + y) * nz
				for iz := 0; iz < pmeOrder; iz++ {
					z := (b[2] + iz) % nz
					q[row+z] += complex(wxy*th[2][iz], 0)
				}
			}
		}
	}

	t := newFFT3(grid)
	t.forward(q)

	// Convolution with the influence function.
	volume := box[0] * box[1] * box[2]
	scale := math.Pi * math.Pi / (alpha * alpha)
	var energy float64
	for x := 0; x < nx; x++ {
		mx := freq(x, nx) / box[0]
		for y := 0; y < ny; y++ {
			my := freq(y, ny) / box[1]
			for z := 0; z < nz; z++ {
				idx := (x*ny+y)*nz + z
				if x == 0 && y == 0 && z == 0 {
					q[idx] = 0
					continue
				}
				mz := freq(z, nz) / box[2]
				m2 := mx*mx + my*my + mz*mz
				denom := math.Pi * volume * m2 * moduli[0][x] * moduli[1][y] * moduli[2][z]
				eterm := coulomb * math.Exp(-scale*m2) / denom

				a := cmplx.Abs(q[idx])
				energy += 0.5 * eterm * a * a
				q[idx] *= complex(eterm, 0)
			}
		}
	}
	acc.energy += energy

	if acc.forces == nil {
		return
	}

	t.backward(q)

	// Interpolate the forces. Every particle only writes its own slot.
	gx := float64(nx) / box[0]
	gy := float64(ny) / box[1]
	gz := float64(nz) / box[2]
	parallel(workers, len(pos), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			charge := tab.atoms[i].charge
			if charge == 0 {
				continue
			}
			th, dth := &sp.theta[i], &sp.dtheta[i]
			b := sp.base[i]
			var fx, fy, fz float64
			for ix := 0; ix < pmeOrder; ix++ {
				x := (b[0] + ix) % nx
				for iy := 0; iy < pmeOrder; iy++ {
					y := (b[1] + iy) % ny
					row := (x*ny + y) * nz
					for iz := 0; iz < pmeOrder; iz++ {
						z := (b[2] + iz) % nz
						v := real(q[row+z])
						fx += dth[0][ix] * th[1][iy] * th[2][iz] * v
						fy += th[0][ix] * dth[1][iy] * th[2][iz] * v
						fz += th[0][ix] * th[1][iy] * dth[2][iz] * v
					}
				}
			}
			acc.forces[3*i] -= charge * fx * gx
			acc.forces[3*i+1] -= charge * fy * gy
			acc.forces[3*i+2] -= charge * fz * gz
		}
	})
}

// freq returns the signed frequency of the grid index k on n points.
func freq(k, n int) float64 {
	if k < (n+1)/2 {
		return float64(k)
	}
	return float64(k - n)
}

