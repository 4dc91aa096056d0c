package nonbonded

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBSpline(t *testing.T) {
	var theta, dtheta [pmeOrder]float64
	for _, dr := range []float64{0, 0.13, 0.5, 0.77, 0.999} {
		bspline(theta[:], dtheta[:], dr)

		var sum, dsum float64
		for k := range theta {
			assert.GreaterOrEqual(t, theta[k], 0.0)
			sum += theta[k]
			dsum += dtheta[k]
		}
		assert.InDelta(t, 1, sum, 1e-12, "dr=%g", dr)
		assert.InDelta(t, 0, dsum, 1e-12, "dr=%g", dr)
	}

	// The derivative matches the weights.
	const h = 1e-6
	var tp, tm, scratch [pmeOrder]float64
	bspline(theta[:], dtheta[:], 0.4)
	bspline(tp[:], scratch[:], 0.4+h)
	bspline(tm[:], scratch[:], 0.4-h)
	for k := range theta {
		assert.InDelta(t, (tp[k]-tm[k])/(2*h), dtheta[k], 1e-6, "k=%d", k)
	}
}

func TestPMEModuli(t *testing.T) {
	for _, n := range []int{6, 12, 25} {
		mod := pmeModuli(n, pmeOrder)
		assert.InDelta(t, 1, mod[0], 1e-12)
		for i := 1; i < n; i++ {
			assert.Greater(t, mod[i], 0.0)
			assert.InDelta(t, mod[i], mod[n-i], 1e-12, "n=%d i=%d", n, i)
		}
	}
}

func TestFFT3RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dims := [3]int{4, 6, 5}
	n := dims[0] * dims[1] * dims[2]

	data := make([]complex128, n)
	for i := range data {
		data[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	orig := append([]complex128(nil), data...)

	f := newFFT3(dims)
	f.forward(data)

	// The zero frequency is the sum of the input.
	var sum complex128
	for _, v := range orig {
		sum += v
	}
	assert.InDelta(t, 0, cmplx.Abs(data[0]-sum), 1e-9)

	f.backward(data)
	for i := range data {
		assert.InDelta(t, 0, cmplx.Abs(data[i]-complex(float64(n), 0)*orig[i]), 1e-9*math.Max(1, cmplx.Abs(orig[i])*float64(n)))
	}
}
