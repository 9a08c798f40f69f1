package safeops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunCommand(t *testing.T) {
	cmd, config, err := Parse([]string{"-store", "memory", "-addr", ":9090", "run"})
	require.NoError(t, err)
	assert.IsType(t, &RunCommand{}, cmd)
	assert.Equal(t, StoreMemory, config.StoreKind)
	assert.Equal(t, ":9090", config.Addr)
	assert.False(t, config.ReadOnly)
}

func TestParseMigrateCommand(t *testing.T) {
	cmd, config, err := Parse([]string{"-store", "postgres", "migrate"})
	require.NoError(t, err)
	assert.IsType(t, &MigrateCommand{}, cmd)
	assert.Equal(t, StorePostgres, config.StoreKind)
}

func TestParseRejectsUnknownStore(t *testing.T) {
	_, _, err := Parse([]string{"-store", "mongodb", "run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store kind")
}

func TestParseRequiresSubcommand(t *testing.T) {
	_, _, err := Parse([]string{"-store", "memory"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")
}

func TestParseReadOnlyFlag(t *testing.T) {
	_, config, err := Parse([]string{"-store", "memory", "-read-only", "run"})
	require.NoError(t, err)
	assert.True(t, config.ReadOnly)
}
