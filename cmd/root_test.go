package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"link", "recover", "runs", "stats"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "linkage-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestLinkCommand_Flags(t *testing.T) {
	for _, name := range []string{"survey", "conversations", "legacy", "output", "unmatched-report", "tolerance-hours", "no-store"} {
		require.NotNil(t, linkCmd.Flags().Lookup(name), "link command should have --%s flag", name)
	}
	assert.Equal(t, "unified_dataset.csv", linkCmd.Flags().Lookup("output").DefValue)
}

func TestRecoverCommand_Flags(t *testing.T) {
	require.NotNil(t, recoverCmd.Flags().Lookup("legacy"))
	assert.Equal(t, "recovered_messages.csv", recoverCmd.Flags().Lookup("output").DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
