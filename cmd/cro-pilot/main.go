package main

import (
	"os"

	"github.com/cro-pilot/cro-pilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
