package main

import (
	"os"

	"github.com/mamadbah2/barberdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
