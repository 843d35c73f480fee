package cmd

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"init", "sync", "setup", "version"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestSyncFlags(t *testing.T) {
	flags := syncCmd.Flags()

	for _, name := range []string{
		"repo-id", "branch", "all-branches", "remote",
		"max-file-size", "concurrency",
		"account", "user", "password", "role", "warehouse", "database", "schema",
	} {
		assert.NotNil(t, flags.Lookup(name), "flag --%s not registered", name)
	}
}

func TestInitSharesConnectionFlags(t *testing.T) {
	flags := initCmd.Flags()
	for _, name := range []string{"account", "user", "password", "role", "warehouse", "database", "schema"} {
		assert.NotNil(t, flags.Lookup(name), "flag --%s not registered", name)
	}
}

func TestExitCodeErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", exitCodeError{code: 2})

	var exit exitCodeError
	require.True(t, stderrors.As(err, &exit))
	assert.Equal(t, 2, exit.code)
}
