package nonbonded

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/integrate/quad"
)

// Method is the way interactions beyond the cutoff are treated.
type Method int

// Methods. Exactly one of them is active in an evaluator.
const (
	NoCutoff Method = iota
	CutoffNonPeriodic
	CutoffPeriodic
	Ewald
	PME
)

var methodNames = [...]string{"NoCutoff", "CutoffNonPeriodic", "CutoffPeriodic", "Ewald", "PME"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod returns the method named s. The comparison is case
// insensitive.
func ParseMethod(s string) (Method, error) {
	for k, v := range methodNames {
		if strings.EqualFold(v, s) {
			return Method(k), nil
		}
	}
	return 0, fmt.Errorf("unknown method `%s`: %w", s, ErrInvalidConfiguration)
}

// Periodic reports whether the method uses periodic boundary conditions.
func (m Method) Periodic() bool {
	return m == CutoffPeriodic || m == Ewald || m == PME
}

const (
	// coulomb is 1/(4 pi eps0) in kJ nm/(mol e^2).
	coulomb = 138.935456

	// pmeOrder is the order of the B-splines used by PME.
	pmeOrder = 5

	// minBoxFactor is the minimum ratio between a periodic box edge and the
	// cutoff.
	minBoxFactor = 1.999999
)

// LongRange contains the constants derived from the method. Alpha and KMax
// are only set for Ewald, Alpha and Grid only for PME.
type LongRange struct {
	Method Method

	// Cutoff is +Inf for NoCutoff.
	Cutoff float64

	UseSwitching      bool
	SwitchingDistance float64

	Alpha float64
	KMax  [3]int
	Grid  [3]int

	// Reaction field constants.
	krf, crf float64
}

// SelectLongRange derives the long-range constants of ff. It only uses the
// counts, the cutoff, the box and the tolerance of ff, never the positions.
func SelectLongRange(ff *ForceField) (LongRange, error) {
	lr := LongRange{Method: ff.Method}

	if ff.Method < NoCutoff || ff.Method > PME {
		return lr, fmt.Errorf("method %v: %w", ff.Method, ErrInvalidConfiguration)
	}

	if ff.Method == NoCutoff {
		lr.Cutoff = math.Inf(1)
		return lr, nil
	}

	if !(ff.Cutoff > 0) || math.IsInf(ff.Cutoff, 0) {
		return lr, fmt.Errorf("%v needs a finite positive cutoff (got %g): %w",
			ff.Method, ff.Cutoff, ErrInvalidConfiguration)
	}
	lr.Cutoff = ff.Cutoff

	if ff.UseSwitching {
		if ff.SwitchingDistance < 0 || ff.SwitchingDistance >= ff.Cutoff {
			return lr, fmt.Errorf("switching distance %g must be in [0, %g): %w",
				ff.SwitchingDistance, ff.Cutoff, ErrInvalidConfiguration)
		}
		lr.UseSwitching = true
		lr.SwitchingDistance = ff.SwitchingDistance
	}

	switch ff.Method {
	case CutoffNonPeriodic, CutoffPeriodic:
		eps := ff.ReactionFieldDielectric
		if eps == 0 {
			eps = DefaultReactionFieldDielectric
		}
		lr.krf = (eps - 1) / ((2*eps + 1) * ff.Cutoff * ff.Cutoff * ff.Cutoff)
		lr.crf = 3 * eps / ((2*eps + 1) * ff.Cutoff)

	case Ewald, PME:
		tol := ff.EwaldTolerance
		if tol == 0 {
			tol = DefaultEwaldTolerance
		}
		if !(tol > 0 && tol < 0.5) {
			return lr, fmt.Errorf("Ewald tolerance %g must be in (0, 0.5): %w", tol, ErrInvalidConfiguration)
		}
		for k := 0; k < 3; k++ {
			if !(ff.Box[k] > 0) {
				return lr, fmt.Errorf("%v needs a positive box (got %v): %w", ff.Method, ff.Box, ErrInvalidConfiguration)
			}
		}

		lr.Alpha = math.Sqrt(-math.Log(2*tol)) / ff.Cutoff
		if ff.Method == Ewald {
			for k := 0; k < 3; k++ {
				lr.KMax[k] = ewaldKMax(ff.Box[k], lr.Alpha, tol)
			}
		} else {
			for k := 0; k < 3; k++ {
				lr.Grid[k] = pmeGridSize(ff.Box[k], lr.Alpha, tol)
			}
		}
	}

	return lr, nil
}

// ewaldKMax finds the number of k-vectors along an edge of length width so
// that the reciprocal-space error estimate is below tol. The result is odd.
func ewaldKMax(width, alpha, tol float64) int {
	errFn := func(k int) float64 {
		x := float64(k) * math.Pi / (width * alpha)
		return tol - 0.05*math.Sqrt(width*alpha)*float64(k)*math.Exp(-x*x)
	}

	k := 10
	v := errFn(k)
	if v > 0 {
		for v > 0 && k > 0 {
			k--
			v = errFn(k)
		}
		k++
	} else {
		for v < 0 {
			k++
			v = errFn(k)
		}
	}

	if k%2 == 0 {
		k++
	}
	return k
}

// pmeGridSize returns the number of grid points along an edge of length
// width.
func pmeGridSize(width, alpha, tol float64) int {
	n := int(math.Ceil(2 * alpha * width / (3 * math.Pow(tol, 0.2))))
	if n < 6 {
		n = 6
	}
	return fftDimension(n)
}

// fftDimension returns the smallest integer >= n whose prime factors are
// all 2, 3, 5 or 7.
func fftDimension(n int) int {
	for ; ; n++ {
		m := n
		for _, f := range [...]int{2, 3, 5, 7} {
			for m%f == 0 {
				m /= f
			}
		}
		if m == 1 {
			return n
		}
	}
}

// switchingFn returns the switching factor and its derivative with respect
// to r. It is 1 below rs and 0 at rc.
func switchingFn(r, rs, rc float64) (s, ds float64) {
	if r <= rs {
		return 1, 0
	}
	if r >= rc {
		return 0, 0
	}
	t := (r - rs) / (rc - rs)
	s = 1 + t*t*t*(-10+t*(15-6*t))
	ds = t * t * (-30 + t*(60-30*t)) / (rc - rs)
	return
}

// DispersionCoefficient returns the coefficient of the long-range
// dispersion correction: dividing it by the volume of the box gives the
// energy of the Lennard-Jones interactions beyond the cutoff, assuming a
// uniform density. It returns 0 for NoCutoff.
func DispersionCoefficient(particles []Particle, lr LongRange) float64 {
	n := len(particles)
	if n == 0 || lr.Method == NoCutoff {
		return 0
	}

	type class struct{ sigma, eps float64 }
	index := make(map[class]int)
	var (
		classes []class
		counts  []float64
	)
	for _, p := range particles {
		c := class{p.Sigma, p.Epsilon}
		k, ok := index[c]
		if !ok {
			k = len(classes)
			index[c] = k
			classes = append(classes, c)
			counts = append(counts, 0)
		}
		counts[k]++
	}

	var sum1, sum2 float64 // <eps sigma^12> and <eps sigma^6>
	for i, ci := range classes {
		for j := 0; j <= i; j++ {
			cj := classes[j]
			count := counts[i] * counts[j]
			if i == j {
				count = counts[i] * (counts[i] + 1) / 2
			}
			sigma := 0.5 * (ci.sigma + cj.sigma)
			eps := math.Sqrt(ci.eps * cj.eps)
			s6 := math.Pow(sigma, 6)
			sum1 += count * eps * s6 * s6
			sum2 += count * eps * s6
		}
	}
	pairs := float64(n) * float64(n+1) / 2
	sum1 /= pairs
	sum2 /= pairs

	rc := lr.Cutoff
	var sum3 float64
	if lr.UseSwitching {
		rs := lr.SwitchingDistance
		sum3 = quad.Fixed(func(r float64) float64 {
			s, _ := switchingFn(r, rs, rc)
			r6 := math.Pow(r, 6)
			return r * r * (1 - s) * (sum1/(r6*r6) - sum2/r6)
		}, rs, rc, 64, quad.Legendre{}, 0)
	}

	nn := float64(n) * float64(n)
	return 8 * math.Pi * nn * (sum1/(9*math.Pow(rc, 9)) - sum2/(3*math.Pow(rc, 3)) + sum3)
}
