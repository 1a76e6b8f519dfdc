package main

import (
	"os"

	"github.com/innovategy/innosystem/cmd"
)

// Version is set at build time via:
//
//	go build -ldflags "-X main.Version=$VERSION"
var Version = "develop"

func main() {
	if err := cmd.SetupCLI(Version).Execute(); err != nil {
		os.Exit(1)
	}
}
