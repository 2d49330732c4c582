package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateCommand_memory_store(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("LOG_LEVEL", "error")
	path := filepath.Join(t.TempDir(), "eventhub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_driver: memory\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "--config", path})
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
}

func TestServeCommand_invalid_config(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"serve"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestRootCommand_rejects_args(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "extra"})
	require.Error(t, cmd.Execute())
}
