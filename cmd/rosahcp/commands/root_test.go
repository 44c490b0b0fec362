package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "rosahcp", cmd.Use)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "provision", "status", "list", "cancel", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestServe(t *testing.T) {
	cmd := Serve()

	require.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
	require.NotNil(t, cmd.Flags().Lookup("kubeconfig"))
}

func TestProvision(t *testing.T) {
	cmd := Provision()

	require.NotNil(t, cmd)
	assert.Equal(t, "provision", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	file := cmd.Flags().Lookup("file")
	require.NotNil(t, file)
	assert.Equal(t, "f", file.Shorthand)
	require.NotNil(t, cmd.Flags().Lookup("plain"))
}

func TestStatus(t *testing.T) {
	cmd := Status()

	require.NotNil(t, cmd)
	assert.Contains(t, cmd.Use, "status")
	assert.NotNil(t, cmd.Args)

	// Requires exactly one job id.
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"job-1"}))
}

func TestCancel(t *testing.T) {
	cmd := Cancel()

	require.NotNil(t, cmd)
	assert.Contains(t, cmd.Use, "cancel")

	flag := cmd.Flags().Lookup("server")
	require.NotNil(t, flag)
	assert.Equal(t, "http://localhost:8080", flag.DefValue)
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "today")
	cmd := Version()

	require.NotNil(t, cmd)
	assert.Equal(t, "version", cmd.Use)
	assert.Equal(t, "1.2.3", version)
}

func TestCompletion(t *testing.T) {
	cmd := Completion()

	require.NotNil(t, cmd)
	assert.Error(t, cmd.Args(cmd, []string{"tcsh"}))
	assert.NoError(t, cmd.Args(cmd, []string{"zsh"}))
}
