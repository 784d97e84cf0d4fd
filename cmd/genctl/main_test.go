package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/generation"
)

func TestModelsCommandPrintsRegistry(t *testing.T) {
	t.Setenv("MODEL_REGISTRY_PATH", "")
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out

	require.NoError(t, cmd.Run(context.Background(), []string{"genctl", "models"}))
	text := out.String()
	for _, model := range []string{"nanobanana-pro", "seedream", "flux-max", "wan-video"} {
		assert.Contains(t, text, model)
	}
	assert.Contains(t, text, "1K=6 2K=10")
}

func TestSweepCommandOnMemoryLedger(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("KIE_API_KEY", "")
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out

	require.NoError(t, cmd.Run(context.Background(), []string{"genctl", "sweep", "--user", "u1"}))
	var rep generation.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, generation.Report{}, rep)
}

func TestSweepRequiresUserFlag(t *testing.T) {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	cmd.ErrWriter = &bytes.Buffer{}
	assert.Error(t, cmd.Run(context.Background(), []string{"genctl", "sweep"}))
}

func TestMigrateRejectsMemoryDriver(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "memory")
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	err := cmd.Run(context.Background(), []string{"genctl", "migrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_DRIVER=postgres")
}

func TestSetKieValidatesBeforeConnecting(t *testing.T) {
	t.Setenv("KIE_API_KEY", "")
	t.Setenv("LEDGER_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"genctl", "set-kie"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--callback-url")

	cmd = newCommand()
	cmd.Writer = &bytes.Buffer{}
	err = cmd.Run(context.Background(), []string{"genctl", "set-kie", "--base-url", "kie.ai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestSetKieRejectsMemoryDriver(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "memory")
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	err := cmd.Run(context.Background(), []string{"genctl", "set-kie", "--callback-url", "https://hooks.example/kie"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_DRIVER=postgres")
}
