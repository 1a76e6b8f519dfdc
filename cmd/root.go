// Package cmd wires the cobra CLI: the shared config options every
// subcommand reads (cmd/root.go), and the serve/db/seed subcommands
// themselves, mirroring the teacher's cmd/root.go structure.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/internal/config"
)

// SetupCLI builds the root command with every subcommand attached.
// version is surfaced on --version; it isn't read from anywhere else.
func SetupCLI(version string) *cobra.Command {
	// godotenv.Load is a no-op (returns an error we ignore) when no .env
	// file is present, so local development can set variables in a file
	// while deployed environments rely on the process environment alone.
	_ = godotenv.Load()

	configOpts := config.ConfigOptions(&config.Options)

	root := &cobra.Command{
		Use:     "innosystem",
		Short:   "Job dispatch and billing platform",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("setting config option values: %s", err.Error())
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	if err := configOpts.Init(root); err != nil {
		log.Fatalf("initializing config options: %s", err.Error())
	}

	root.AddCommand(serveCmd())
	root.AddCommand(dbCmd())
	root.AddCommand(seedCmd())

	return root
}
