package nonbonded

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// chunks returns the number of contiguous chunks [0, n) is split into when
// using at most workers goroutines.
func chunks(workers, n int) int {
	if workers < 1 {
		workers = 1
	}
	if n < workers {
		workers = n
	}
	if workers < 1 {
		return 1
	}
	return workers
}

// parallel splits [0, n) into chunks(workers, n) contiguous ranges and calls
// fn on each of them in its own goroutine. It blocks until every call has
// returned. The ranges only depend on workers and n.
func parallel(workers, n int, fn func(w, lo, hi int)) {
	k := chunks(workers, n)
	if k == 1 {
		fn(0, 0, n)
		return
	}

	var wg sync.WaitGroup
	wg.Add(k)
	for w := 0; w < k; w++ {
		lo, hi := w*n/k, (w+1)*n/k
		go func(w, lo, hi int) {
			fn(w, lo, hi)
			wg.Done()
		}(w, lo, hi)
	}
	wg.Wait()
}

// accumulator is the private energy and force sink of one worker. forces is
// flat (x0 y0 z0 x1 ...) and nil when forces are not requested.
type accumulator struct {
	energy float64
	forces []float64
	err    error
}

func newAccumulators(k, n int, withForces bool) []accumulator {
	acc := make([]accumulator, k)
	if withForces {
		for w := range acc {
			acc[w].forces = make([]float64, 3*n)
		}
	}
	return acc
}

func (a *accumulator) add(i int, f [3]float64) {
	a.forces[3*i] += f[0]
	a.forces[3*i+1] += f[1]
	a.forces[3*i+2] += f[2]
}

// merge adds the partial results into a in worker order and returns the
// first error met.
func (a *accumulator) merge(parts []accumulator) error {
	for w := range parts {
		if parts[w].err != nil {
			return parts[w].err
		}
		a.energy += parts[w].energy
		if a.forces != nil {
			floats.Add(a.forces, parts[w].forces)
		}
	}
	return nil
}
