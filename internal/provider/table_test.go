package provider_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/genforge-api/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customTable = `
capabilities:
  text:
    general: [anthropic, gemini]
    coding: [openai]
  image:
    general: [replicate]
models:
  openai:
    text:
      general: gpt-4o-mini
  anthropic:
    text:
      general: claude-3-5-haiku-latest
  gemini:
    text:
      general: gemini-2.0-flash
  replicate:
    image:
      general: black-forest-labs/flux-schnell
`

func TestLoadTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customTable), 0o600))

	table, err := provider.LoadTable(path)
	require.NoError(t, err)

	registry, err := provider.New(table, allAdapters())
	require.NoError(t, err)

	route, err := registry.Resolve(provider.CategoryText, provider.SubCategoryCoding)
	require.NoError(t, err)
	assert.Equal(t, provider.OpenAI, route.Provider)
	assert.Equal(t, "gpt-4o-mini", route.Model)

	route, err = registry.Resolve(provider.CategoryImage, provider.SubCategoryArtistic)
	require.NoError(t, err)
	assert.Equal(t, provider.Replicate, route.Provider)
	assert.Equal(t, "black-forest-labs/flux-schnell", route.Model)

	p, category, err := registry.ResolveModel("claude-3-5-haiku-latest")
	require.NoError(t, err)
	assert.Equal(t, provider.Anthropic, p)
	assert.Equal(t, provider.CategoryText, category)
}

func TestLoadTable_Errors(t *testing.T) {
	t.Parallel()

	_, err := provider.LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = provider.ParseTable([]byte("capabilities: [not, a, map]"))
	assert.Error(t, err)
}

func TestDefaultTable_IsValid(t *testing.T) {
	t.Parallel()

	_, err := provider.New(provider.DefaultTable(), allAdapters())
	assert.NoError(t, err)
}
