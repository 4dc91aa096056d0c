package nonbonded

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKernelSwitching(t *testing.T) {
	const rs, rc = 0.8, 1.0
	lr, err := SelectLongRange(&ForceField{
		Method:            CutoffNonPeriodic,
		Cutoff:            rc,
		UseSwitching:      true,
		SwitchingDistance: rs,
	})
	require.NoError(t, err)
	k := newPairKernel(lr)

	pairs := map[string][2]atomParams{
		"neutral": {{halfSigma: 0.15, sqrtEps: 1.4}, {halfSigma: 0.17, sqrtEps: 1.1}},
		"charged": {{halfSigma: 0.15, sqrtEps: 1.4, charge: 0.4}, {halfSigma: 0.17, sqrtEps: 1.1, charge: -0.7}},
	}
	energy := func(a, b atomParams, r float64) float64 {
		e, _ := k.eval(a, b, r*r)
		return e
	}
	force := func(a, b atomParams, r float64) float64 {
		_, f := k.eval(a, b, r*r)
		return f * r // -dE/dr
	}

	for name, p := range pairs {
		a, b := p[0], p[1]

		// Zero at the cutoff.
		assert.InDelta(t, 0, energy(a, b, rc), 1e-9, name)

		// Continuous energy and derivative at the switching distance.
		const eps = 1e-9
		assert.InDelta(t, energy(a, b, rs-eps), energy(a, b, rs+eps), 1e-6, name)
		assert.InDelta(t, force(a, b, rs-eps), force(a, b, rs+eps), 1e-5, name)

		// The force is minus the derivative of the energy, inside and
		// outside of the switching region.
		const h = 1e-6
		for _, r := range []float64{0.35, 0.6, 0.82, 0.9, 0.99} {
			grad := (energy(a, b, r+h) - energy(a, b, r-h)) / (2 * h)
			assert.InDelta(t, -grad, force(a, b, r), 1e-4*math.Max(1, math.Abs(grad)), "%s r=%g", name, r)
		}
	}

	// The Lennard-Jones force vanishes at the cutoff.
	a := pairs["neutral"][0]
	_, fc := k.eval(a, a, rc*rc)
	assert.Zero(t, fc)
}

func TestPairKernelEwald(t *testing.T) {
	lr, err := SelectLongRange(&ForceField{Method: Ewald, Cutoff: 1, Box: [3]float64{3, 3, 3}})
	require.NoError(t, err)
	k := newPairKernel(lr)

	a := atomParams{charge: 1}
	b := atomParams{charge: -1}
	for _, r := range []float64{0.2, 0.5, 0.9} {
		e, _ := k.eval(a, b, r*r)
		assert.InDelta(t, -coulomb*math.Erfc(lr.Alpha*r)/r, e, 1e-9)
	}
}
