package nonbonded

import (
	"fmt"
	"math"
)

// Wrap writes into dst the positions moved into the primary periodic cell,
// x - floor(x/L + 0.5)*L on each axis, and returns it. When periodic is
// false the positions are copied unmodified. dst is reallocated if it is too
// short.
func Wrap(dst, pos [][3]float64, box [3]float64, periodic bool) [][3]float64 {
	if cap(dst) < len(pos) {
		dst = make([][3]float64, len(pos))
	}
	dst = dst[:len(pos)]

	if !periodic {
		copy(dst, pos)
		return dst
	}

	for i, p := range pos {
		for k := 0; k < 3; k++ {
			dst[i][k] = p[k] - math.Floor(p[k]/box[k]+0.5)*box[k]
		}
	}
	return dst
}

// Reduce converts positions to single precision.
func Reduce(dst [][3]float32, pos [][3]float64) [][3]float32 {
	if cap(dst) < len(pos) {
		dst = make([][3]float32, len(pos))
	}
	dst = dst[:len(pos)]
	for i, p := range pos {
		dst[i] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
	}
	return dst
}

// Delta returns a - b, using the minimum image convention if periodic.
func Delta(a, b [3]float64, box [3]float64, periodic bool) [3]float64 {
	var d [3]float64
	for k := 0; k < 3; k++ {
		d[k] = a[k] - b[k]
		if periodic {
			d[k] -= box[k] * math.Floor(d[k]/box[k]+0.5)
		}
	}
	return d
}

func delta32(a, b [3]float32, box [3]float32, periodic bool) (d2 float32) {
	for k := 0; k < 3; k++ {
		d := a[k] - b[k]
		if periodic {
			d -= box[k] * float32(math.Floor(float64(d/box[k])+0.5))
		}
		d2 += d * d
	}
	return
}

// cellGrid is an arena of cells rebuilt at every step. The particles of
// cell c are items[start[c]:start[c+1]].
type cellGrid struct {
	dims   [3]int
	size   [3]float32
	origin [3]float32

	start  []int
	items  []int
	cellOf []int
}

// NeighborList is the list of the pairs (i < j) closer than the cutoff and
// not excluded. Its buffers are reused from one Build to the next. A
// NeighborList must not be built concurrently.
type NeighborList struct {
	Pairs [][2]int

	grid  cellGrid
	parts [][][2]int
}

// Build computes the neighbor list. pos are single precision coordinates,
// already wrapped when periodic. A periodic box edge smaller than twice the
// cutoff returns ErrBoxTooSmall. An infinite cutoff gives every pair which
// is not excluded.
func (nl *NeighborList) Build(pos [][3]float32, excl Exclusions, box [3]float32, periodic bool, cutoff float64, workers int) error {
	n := len(pos)
	if excl != nil && len(excl) != n {
		return fmt.Errorf("%d exclusion lists for %d particles: %w", len(excl), n, ErrInvalidParameter)
	}
	if periodic {
		for k := 0; k < 3; k++ {
			if float64(box[k]) < minBoxFactor*cutoff {
				return fmt.Errorf("box %v, cutoff %g: %w", box, cutoff, ErrBoxTooSmall)
			}
		}
	}

	g := &nl.grid
	g.setup(pos, box, periodic, cutoff)
	g.fill(pos, periodic, box)

	ncell := len(g.start) - 1
	k := chunks(workers, ncell)
	if len(nl.parts) < k {
		nl.parts = append(nl.parts, make([][][2]int, k-len(nl.parts))...)
	}

	cutoff2 := float32(cutoff * cutoff)
	parallel(workers, ncell, func(w, lo, hi int) {
		out := nl.parts[w][:0]
		var near []int
		for c := lo; c < hi; c++ {
			items := g.items[g.start[c]:g.start[c+1]]
			if len(items) == 0 {
				continue
			}

			for a, i := range items {
				for _, j := range items[a+1:] {
					out = appendPair(out, pos, excl, box, periodic, cutoff2, i, j)
				}
			}

			near = g.neighbors(near[:0], c, periodic)
			for _, c2 := range near {
				for _, i := range items {
					for _, j := range g.items[g.start[c2]:g.start[c2+1]] {
						out = appendPair(out, pos, excl, box, periodic, cutoff2, i, j)
					}
				}
			}
		}
		nl.parts[w] = out
	})

	nl.Pairs = nl.Pairs[:0]
	for w := 0; w < k; w++ {
		nl.Pairs = append(nl.Pairs, nl.parts[w]...)
	}
	return nil
}

func appendPair(out [][2]int, pos [][3]float32, excl Exclusions, box [3]float32, periodic bool, cutoff2 float32, i, j int) [][2]int {
	if i > j {
		i, j = j, i
	}
	if excl != nil && excl.Excluded(i, j) {
		return out
	}
	if delta32(pos[i], pos[j], box, periodic) > cutoff2 {
		return out
	}
	return append(out, [2]int{i, j})
}

// setup chooses the cells. Periodic cells tile the box with an edge of at
// least the cutoff. Non-periodic cells start at the lowest coordinate. In
// both cases cells are enlarged when there would be many more cells than
// particles.
func (g *cellGrid) setup(pos [][3]float32, box [3]float32, periodic bool, cutoff float64) {
	n := len(pos)
	maxCells := float64(2*n + 27)
	if periodic {
		size := cutoff
		for {
			total := 1.0
			for k := 0; k < 3; k++ {
				total *= math.Max(1, math.Floor(float64(box[k])/size))
			}
			if total <= maxCells {
				break
			}
			size *= 2
		}
		for k := 0; k < 3; k++ {
			g.dims[k] = int(math.Max(1, math.Floor(float64(box[k])/size)))
			g.size[k] = box[k] / float32(g.dims[k])
			g.origin[k] = -box[k] / 2
		}
		return
	}

	var lo, hi [3]float32
	for k := 0; k < 3; k++ {
		lo[k], hi[k] = float32(math.Inf(1)), float32(math.Inf(-1))
	}
	for _, p := range pos {
		for k := 0; k < 3; k++ {
			if p[k] < lo[k] {
				lo[k] = p[k]
			}
			if p[k] > hi[k] {
				hi[k] = p[k]
			}
		}
	}

	g.dims = [3]int{1, 1, 1}
	if n == 0 {
		g.origin = [3]float32{}
		g.size = [3]float32{1, 1, 1}
		return
	}
	g.origin = lo
	if math.IsInf(cutoff, 1) {
		for k := 0; k < 3; k++ {
			g.size[k] = hi[k] - lo[k] + 1
		}
		return
	}

	size := cutoff
	for {
		total := 1.0
		for k := 0; k < 3; k++ {
			total *= math.Floor(float64(hi[k]-lo[k])/size) + 1
		}
		if total <= maxCells {
			break
		}
		size *= 2
	}
	for k := 0; k < 3; k++ {
		g.dims[k] = int(float64(hi[k]-lo[k])/size) + 1
		g.size[k] = float32(size)
	}
}

// fill sorts the particles into the cells (counting sort).
func (g *cellGrid) fill(pos [][3]float32, periodic bool, box [3]float32) {
	ncell := g.dims[0] * g.dims[1] * g.dims[2]
	g.start = resize(g.start, ncell+1)
	g.cellOf = resize(g.cellOf, len(pos))
	g.items = resize(g.items, len(pos))
	for c := range g.start {
		g.start[c] = 0
	}

	for i, p := range pos {
		var c [3]int
		for k := 0; k < 3; k++ {
			x := p[k] - g.origin[k]
			if periodic {
				x -= box[k] * float32(math.Floor(float64(x/box[k])))
			}
			c[k] = int(x / g.size[k])
			if c[k] < 0 {
				c[k] = 0
			} else if c[k] >= g.dims[k] {
				c[k] = g.dims[k] - 1
			}
		}
		idx := c[0] + g.dims[0]*(c[1]+g.dims[1]*c[2])
		g.cellOf[i] = idx
		g.start[idx+1]++
	}

	for c := 0; c < ncell; c++ {
		g.start[c+1] += g.start[c]
	}
	next := make([]int, ncell)
	copy(next, g.start[:ncell])
	for i, c := range g.cellOf {
		g.items[next[c]] = i
		next[c]++
	}
}

// neighbors appends the distinct cells adjacent to c with an index greater
// than c.
func (g *cellGrid) neighbors(dst []int, c int, periodic bool) []int {
	cx := c % g.dims[0]
	cy := (c / g.dims[0]) % g.dims[1]
	cz := c / (g.dims[0] * g.dims[1])

	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				x, ok1 := wrapCell(cx+dx, g.dims[0], periodic)
				y, ok2 := wrapCell(cy+dy, g.dims[1], periodic)
				z, ok3 := wrapCell(cz+dz, g.dims[2], periodic)
				if !ok1 || !ok2 || !ok3 {
					continue
				}
				idx := x + g.dims[0]*(y+g.dims[1]*z)
				if idx <= c || contains(dst, idx) {
					continue
				}
				dst = append(dst, idx)
			}
		}
	}
	return dst
}

func wrapCell(x, n int, periodic bool) (int, bool) {
	if x >= 0 && x < n {
		return x, true
	}
	if !periodic {
		return 0, false
	}
	return (x%n + n) % n, true
}

func contains(l []int, v int) bool {
	for _, x := range l {
		if x == v {
			return true
		}
	}
	return false
}

func resize(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}
