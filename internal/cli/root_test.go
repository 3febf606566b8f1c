package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed"}, names)

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "true", serve.Flags().Lookup("migrate").DefValue)
	assert.NotNil(t, serve.Flags().Lookup("seed-file"))

	status, _, err := cmd.Find([]string{"migrate", "status"})
	require.NoError(t, err)
	assert.Equal(t, "status", status.Name())
}

func TestSeedCommand_RequiresPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "a-long-enough-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"seed"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory store")
}

func TestLoadSeed(t *testing.T) {
	doc, err := loadSeed("")
	require.NoError(t, err)
	assert.Len(t, doc.Days, 5)

	_, err = loadSeed("does-not-exist.yaml")
	assert.Error(t, err)
}
