package generation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/domain"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRegistryDefaults(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	models := reg.Models()
	require.Len(t, models, 6)
	assert.Equal(t, "flux", models[0].Model)
}

func TestLoadRegistryOverridesAndAdds(t *testing.T) {
	path := writeRegistry(t, `
models:
  flux:
    provider_model: flux-kontext-dev
    price: 5
  flux-lite:
    kind: single-task
    provider_model: flux-kontext-lite
    profile: flux
    price: 2
`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	flux, err := reg.Lookup("flux")
	require.NoError(t, err)
	assert.Equal(t, "flux-kontext-dev", flux.ProviderModel)
	assert.Equal(t, 5, flux.Price)
	assert.Equal(t, domain.KindSingleTask, flux.Kind)

	lite, err := reg.Lookup("flux-lite")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeImage, lite.MediaType)
	assert.Equal(t, 1, lite.MaxImages)
	assert.Equal(t, 2, lite.Price)
}

func TestLoadRegistryRejectsUnknownProfile(t *testing.T) {
	path := writeRegistry(t, `
models:
  mystery:
    kind: generic-job
    provider_model: x/y
    profile: sdxl
    price: 1
`)
	_, err := LoadRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestLoadRegistryRejectsUnknownKind(t *testing.T) {
	path := writeRegistry(t, `
models:
  flux:
    kind: streaming
`)
	_, err := LoadRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
