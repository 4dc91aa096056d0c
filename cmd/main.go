package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kpotier/nonbonded/pkg/cfg"
)

func main() {
	log := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) != 2 {
		log.Fatalf("one argument is needed: path of the configuration file (calculations: %v)", cfg.Types())
	}

	c, err := cfg.New(os.Args[1])
	if err != nil {
		log.Fatal(fmt.Errorf("New: %w", err))
	}

	if failed := c.Start(log); failed > 0 {
		log.Fatalf("%d calculation(s) failed", failed)
	}
}
