package main

import (
	"os"

	"github.com/rustyeddy/demotrader/cmd/demotrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
