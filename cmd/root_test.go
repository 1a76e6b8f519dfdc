package cmd

import (
	"bytes"
	"testing"

	"github.com/innovategy/innosystem/internal/crashtracker"
	"github.com/stretchr/testify/assert"
)

func Test_crashTrackerType(t *testing.T) {
	assert.Equal(t, crashtracker.TypeDryRun, crashTrackerType("development"))
	assert.Equal(t, crashtracker.TypeSentry, crashTrackerType("staging"))
	assert.Equal(t, crashtracker.TypeSentry, crashTrackerType("production"))
}

func Test_SetupCLI_Help(t *testing.T) {
	rootCmd := SetupCLI("x.y.z")
	rootCmd.SetArgs([]string{"--help"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	err := rootCmd.Execute()
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Job dispatch and billing platform")
}

func Test_SetupCLI_RegistersSubcommands(t *testing.T) {
	rootCmd := SetupCLI("x.y.z")

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["db"])
	assert.True(t, names["seed"])
}
