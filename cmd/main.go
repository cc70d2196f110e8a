package main

import (
	"fmt"
	"os"

	"github.com/fskope/fskope/cmd/cmd"
	"github.com/fskope/fskope/internal/env"
)

func main() {
	fmt.Printf("fskope %s (%s, built %s)\n\n", env.Version, env.CommitHash, env.BuildTime)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
