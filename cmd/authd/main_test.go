package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artilun/credential-service/internal/core/security"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "keygen"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestKeygen_PrintsLoadableKey(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"keygen"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "BEGIN PRIVATE KEY")

	key, err := security.LoadSigningKey(buf.String())
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestServe_RejectsMissingSecrets(t *testing.T) {
	t.Setenv("HASH_PEPPER", "")
	t.Setenv("JWT_PRIVATE_KEY", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HASH_PEPPER")
}
