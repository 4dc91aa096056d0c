package nonbonded

import "errors"

// Errors returned by the evaluator. They are wrapped with more context, use
// errors.Is to test for them.
var (
	// ErrInvalidConfiguration is returned when the method, the cutoff, the
	// switching distance or the Ewald tolerance cannot work together.
	ErrInvalidConfiguration = errors.New("invalid nonbonded configuration")

	// ErrInvalidParameter is returned when a particle or an exception is
	// malformed (index out of range, negative sigma, ...).
	ErrInvalidParameter = errors.New("invalid nonbonded parameter")

	// ErrBoxTooSmall is returned when a periodic box edge is smaller than
	// twice the cutoff.
	ErrBoxTooSmall = errors.New("the periodic box size has decreased to less than twice the nonbonded cutoff")

	// ErrOverlap is returned when two interacting particles are at the same
	// position.
	ErrOverlap = errors.New("two interacting particles overlap")

	// ErrParticleCount is returned by UpdateParameters when the number of
	// particles has changed.
	ErrParticleCount = errors.New("the number of particles has changed")

	// ErrExceptionCount is returned by UpdateParameters when the number of
	// non-excluded exceptions has changed.
	ErrExceptionCount = errors.New("the number of non-excluded exceptions has changed")
)
