package cfg

import (
	"fmt"
	"sort"

	"github.com/kpotier/nonbonded/pkg/energy"
	"github.com/kpotier/nonbonded/pkg/rdf"
)

// Calculation is an interface that only contains one method: Start. Every
// calculation must have a Start method that will launch the calculation. It
// must be a thread blocking method.
type Calculation interface {
	Start() error
}

// calculations maps the type of a calculation to its constructor, which
// reads the parameters from the file at path.
var calculations = map[string]func(path string) (Calculation, error){
	energy.Type: func(path string) (Calculation, error) { return energy.New(path) },
	rdf.Type:    func(path string) (Calculation, error) { return rdf.New(path) },
}

// Types returns the types of calculations that can be launched.
func Types() []string {
	types := make([]string, 0, len(calculations))
	for t := range calculations {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Launch launchs a specific calculation. It is a thread blocking method. The
// parameters required to launch the calculation must be in a file.
func Launch(name string, path string) error {
	newCal, ok := calculations[name]
	if !ok {
		return fmt.Errorf("calculation `%s` doesn't exist (available: %v)", name, Types())
	}

	cal, err := newCal(path)
	if err != nil {
		return fmt.Errorf("%s: New: %w", name, err)
	}

	err = cal.Start()
	if err != nil {
		return fmt.Errorf("%s: Start: %w", name, err)
	}

	return nil
}
