package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandMetadata(t *testing.T) {
	root := GetRootCmd()

	assert.Equal(t, "beaver-server", root.Use)
	assert.Equal(t, GetVersion(), root.Version)

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "serve")
}

func TestVersionFlag(t *testing.T) {
	root := GetRootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "beaver-server version "+GetVersion())
}

func TestPersistentFlagsAreRegistered(t *testing.T) {
	root := GetRootCmd()

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}
