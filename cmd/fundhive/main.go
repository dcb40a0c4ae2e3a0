package main

import (
	"os"

	"github.com/fundhive-network/fundhive/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
