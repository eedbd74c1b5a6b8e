package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps (category, sub-category) to an ordered provider list and
// (provider, category, sub-category) to a model id. The first provider in
// a list is the primary one.
type Table struct {
	Capabilities map[Category]map[SubCategory][]ProviderID          `yaml:"capabilities"`
	Models       map[ProviderID]map[Category]map[SubCategory]string `yaml:"models"`
}

// DefaultTable returns the built-in capability table.
func DefaultTable() Table {
	return Table{
		Capabilities: map[Category]map[SubCategory][]ProviderID{
			CategoryText: {
				SubCategoryGeneral:  {Gemini, Anthropic},
				SubCategoryResearch: {Anthropic},
				SubCategoryCoding:   {Gemini},
				SubCategoryCreative: {Anthropic},
			},
			CategoryImage: {
				SubCategoryGeneral:   {Stability, Replicate},
				SubCategoryRealistic: {Stability},
				SubCategoryArtistic:  {Replicate},
			},
		},
		Models: map[ProviderID]map[Category]map[SubCategory]string{
			OpenAI: {
				CategoryText: {
					SubCategoryGeneral: "gpt-4o",
					SubCategoryCoding:  "gpt-4o",
				},
				CategoryImage: {
					SubCategoryGeneral: "dall-e-3",
				},
			},
			Anthropic: {
				CategoryText: {
					SubCategoryGeneral:  "claude-3-5-sonnet-latest",
					SubCategoryResearch: "claude-3-opus-latest",
					SubCategoryCreative: "claude-3-opus-latest",
				},
			},
			Gemini: {
				CategoryText: {
					SubCategoryGeneral:  "gemini-1.5-pro",
					SubCategoryCoding:   "gemini-1.5-pro",
					SubCategoryCreative: "gemini-1.5-pro",
				},
			},
			Stability: {
				CategoryImage: {
					SubCategoryGeneral:   "stable-diffusion-xl-1024-v1-0",
					SubCategoryRealistic: "stable-diffusion-xl-1024-v1-0",
				},
			},
			Replicate: {
				CategoryImage: {
					SubCategoryGeneral:  "stability-ai/sdxl",
					SubCategoryArtistic: "stability-ai/sdxl",
				},
			},
		},
	}
}

// LoadTable reads a capability table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read capability table %s: %w", path, err)
	}
	return ParseTable(data)
}

// ParseTable decodes a YAML capability table.
func ParseTable(data []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return Table{}, fmt.Errorf("failed to parse capability table: %w", err)
	}
	return table, nil
}

// model looks up an exact model entry.
func (t Table) model(p ProviderID, c Category, s SubCategory) (string, bool) {
	byCategory, ok := t.Models[p]
	if !ok {
		return "", false
	}
	bySub, ok := byCategory[c]
	if !ok {
		return "", false
	}
	model, ok := bySub[s]
	return model, ok && model != ""
}
