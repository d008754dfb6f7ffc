package main

import (
	"fmt"
	"os"

	"github.com/ekaya-inc/growth-engine/cmd"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cmd.Version = Version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
