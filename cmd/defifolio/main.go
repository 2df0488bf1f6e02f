package main

import (
	"os"

	"github.com/jkalmus/defifolio/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
