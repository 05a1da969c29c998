package capability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogMissingFileFallsBack(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "models.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cat.Defaults[RoleExtraction])
	assert.Equal(t, "openai/gpt-4o-mini", cat.Models["gpt-4o-mini"].ID)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	yaml := `
models:
  cheap:
    provider: openrouter
    id: openai/gpt-4o-mini
  smart:
    provider: anthropic
    id: claude-sonnet-4-5-20250929
defaults:
  extraction: cheap
  analysis: smart
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "cheap", cat.Defaults[RoleExtraction])
	assert.Equal(t, "anthropic", cat.Models["smart"].Provider)
}

func TestLoadCatalogEmptyModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: {}\n"), 0644))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lists no models")
}

func TestResolveAuto(t *testing.T) {
	reg := NewRegistry(DefaultCatalog(), nil)

	e, err := reg.Resolve("auto", RoleExtraction)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", e.Alias)
	assert.Equal(t, "openai/gpt-4o-mini", e.ID)

	e, err = reg.Resolve("", RoleAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", e.Alias)
}

func TestWithDefaultsOverridesAutoResolution(t *testing.T) {
	cat := DefaultCatalog().WithDefaults("claude-haiku", "auto")
	reg := NewRegistry(cat, nil)

	e, err := reg.Resolve("auto", RoleExtraction)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", e.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", e.ID)

	// Analysis default untouched by the "auto" override.
	e, err = reg.Resolve("", RoleAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", e.ID)

	// The source catalog keeps its own defaults.
	assert.Equal(t, "gpt-4o-mini", DefaultCatalog().Defaults[RoleExtraction])
}

func TestResolveAlias(t *testing.T) {
	reg := NewRegistry(DefaultCatalog(), nil)

	e, err := reg.Resolve("claude-sonnet", RoleAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", e.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", e.ID)
}

func TestResolveUnknownPassesThroughToOpenRouter(t *testing.T) {
	reg := NewRegistry(DefaultCatalog(), nil)

	e, err := reg.Resolve("mistralai/mistral-large", RoleAnalysis)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", e.Provider)
	assert.Equal(t, "mistralai/mistral-large", e.ID)
	assert.Equal(t, "mistralai/mistral-large", e.Alias)
}

func TestResolveNoDefaultForRole(t *testing.T) {
	reg := NewRegistry(Catalog{Models: map[string]Entry{"m": {Provider: "openrouter", ID: "m"}}, Defaults: map[Role]string{}}, nil)

	_, err := reg.Resolve("auto", RoleExtraction)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default model")
}

type stubClient struct{}

func (stubClient) Complete(ctx context.Context, req Request) (*Response, error) {
	return &Response{Text: "{}"}, nil
}

func TestClientFor(t *testing.T) {
	reg := NewRegistry(DefaultCatalog(), map[string]Client{"openrouter": stubClient{}})

	e, err := reg.Resolve("gpt-4o-mini", RoleExtraction)
	require.NoError(t, err)

	c, err := reg.ClientFor(e)
	require.NoError(t, err)
	assert.NotNil(t, c)

	e2, err := reg.Resolve("claude-sonnet", RoleAnalysis)
	require.NoError(t, err)
	_, err = reg.ClientFor(e2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no client configured")
}
