// Package cfg dispatches several calculations. It avoids to start a
// specific program for each calculation.
package cfg

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pelletier/go-toml"
)

// Cfg is a structure where the types of calculations are stored. It can be
// instanced through the New method. The length of the Files slice must be equal
// to the length of the Types slice. Each calculation requires a configuration
// file where the parameters required to run the calculation are stored.
//
// Threads limits the number of threads used by all the calculations. Every
// thread available is used when it is zero.
type Cfg struct {
	Types   [][]string `toml:"types"`
	Files   [][]string `toml:"files"`
	Threads int        `toml:"threads"`
}

// New returns an instance of the Cfg structure. It opens and reads the
// configuration file where Types and Files are stored. The configuration file
// must use the TOML format.
func New(path string) (Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return Cfg{}, err
	}
	defer f.Close()

	var cfg Cfg
	dec := toml.NewDecoder(f)
	err = dec.Decode(&cfg)
	if err != nil {
		return Cfg{}, err
	}

	if len(cfg.Files) != len(cfg.Types) {
		return Cfg{}, fmt.Errorf("length of Files isn't equal to Types (%d vs %d)",
			len(cfg.Files), len(cfg.Types))
	}

	for k, v := range cfg.Files {
		if len(v) != len(cfg.Types[k]) {
			return Cfg{}, fmt.Errorf("length of Files isn't equal to Types (%d vs %d, step %d)",
				len(v), len(cfg.Types[k]), k)
		}
	}

	if cfg.Threads < 0 {
		return Cfg{}, fmt.Errorf("negative number of threads (%d)", cfg.Threads)
	}

	return cfg, nil
}

// Start dispatches and performs the calculations. If several calculations are
// in the same array (e.g Types: ["x", "y", "z"]), they will be performed in
// parallel. The steps are performed one after the other.
//
// It is a thread blocking method. If an error occurs for a specific
// calculation, the calculation will stop and log the error but the method won't
// stop. It returns the number of failed calculations.
func (c Cfg) Start(log *log.Logger) int {
	if c.Threads > 0 {
		prev := runtime.GOMAXPROCS(c.Threads)
		defer runtime.GOMAXPROCS(prev)
	}

	var (
		wg     sync.WaitGroup
		mux    sync.Mutex
		failed int
	)
	run := func(step, rtn int, name string) {
		path := c.Files[step][rtn]
		log.Printf("%s (step %d, routine %d): start with %s", name, step, rtn, path)
		t := time.Now()

		err := Launch(name, path)
		if err != nil {
			log.Println(fmt.Errorf("Launch (step %d, routine %d): %w", step, rtn, err))
			mux.Lock()
			failed++
			mux.Unlock()
			return
		}
		log.Printf("%s (step %d, routine %d): done in %v", name, step, rtn, time.Since(t).Round(time.Millisecond))
	}

	for step, types := range c.Types {
		if len(types) == 0 {
			continue
		}

		for rtn, name := range types[1:] { // For each calculation
			wg.Add(1)
			go func(rtn int, name string) {
				defer wg.Done()
				run(step, rtn+1, name)
			}(rtn, name)
		}

		run(step, 0, types[0])
		wg.Wait()
	}

	return failed
}
