package nonbonded

import "gonum.org/v1/gonum/dsp/fourier"

// fft3 is an unnormalized 3D complex FFT on a row-major grid, built from 1D
// transforms along each axis. It is not safe for concurrent use.
type fft3 struct {
	dims    [3]int
	plans   [3]*fourier.CmplxFFT
	line    [3][]complex128
	scratch [3][]complex128
}

func newFFT3(dims [3]int) *fft3 {
	t := &fft3{dims: dims}
	for a := 0; a < 3; a++ {
		t.plans[a] = fourier.NewCmplxFFT(dims[a])
		t.line[a] = make([]complex128, dims[a])
		t.scratch[a] = make([]complex128, dims[a])
	}
	return t
}

// forward replaces data with sum_k data[k] exp(-2 pi i m.k/K).
func (t *fft3) forward(data []complex128) { t.transform(data, false) }

// backward replaces data with sum_m data[m] exp(+2 pi i m.k/K), without the
// 1/K normalization.
func (t *fft3) backward(data []complex128) { t.transform(data, true) }

func (t *fft3) transform(data []complex128, inverse bool) {
	nx, ny, nz := t.dims[0], t.dims[1], t.dims[2]
	strides := [3]int{ny * nz, nz, 1}

	for a := 0; a < 3; a++ {
		// Offsets of the first element of every line along axis a.
		var u, v [2]int // the two other axes: sizes and strides
		switch a {
		case 0:
			u, v = [2]int{ny, strides[1]}, [2]int{nz, strides[2]}
		case 1:
			u, v = [2]int{nx, strides[0]}, [2]int{nz, strides[2]}
		case 2:
			u, v = [2]int{nx, strides[0]}, [2]int{ny, strides[1]}
		}

		line, out := t.line[a], t.scratch[a]
		stride := strides[a]
		for i := 0; i < u[0]; i++ {
			for j := 0; j < v[0]; j++ {
				off := i*u[1] + j*v[1]
				for k := range line {
					line[k] = data[off+k*stride]
				}
				if inverse {
					t.plans[a].Sequence(out, line)
				} else {
					t.plans[a].Coefficients(out, line)
				}
				for k, c := range out {
					data[off+k*stride] = c
				}
			}
		}
	}
}
