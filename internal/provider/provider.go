// Package provider holds the capability table that decides which AI provider
// and model serve a given category of request, and the registry that binds
// those providers to their adapters.
package provider

import (
	"fmt"
	"strings"

	"github.com/phrazzld/genforge-api/internal/generation"
)

// ProviderID names one supported AI provider.
type ProviderID string

const (
	OpenAI    ProviderID = "openai"
	Anthropic ProviderID = "anthropic"
	Gemini    ProviderID = "gemini"
	Stability ProviderID = "stability"
	Replicate ProviderID = "replicate"
)

// KnownProviders lists every provider the service can talk to.
var KnownProviders = []ProviderID{OpenAI, Anthropic, Gemini, Stability, Replicate}

// Valid reports whether p is one of KnownProviders.
func (p ProviderID) Valid() bool {
	for _, known := range KnownProviders {
		if p == known {
			return true
		}
	}
	return false
}

// ParseProviderID converts a configuration string to a ProviderID.
func ParseProviderID(s string) (ProviderID, error) {
	p := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, s)
	}
	return p, nil
}

// Category is the kind of output a request asks for.
type Category string

const (
	CategoryText  Category = "text"
	CategoryImage Category = "image"
)

// Valid reports whether c is text or image.
func (c Category) Valid() bool {
	return c == CategoryText || c == CategoryImage
}

// SubCategory refines a Category for routing.
type SubCategory string

const (
	SubCategoryGeneral   SubCategory = "general"
	SubCategoryResearch  SubCategory = "research"
	SubCategoryCoding    SubCategory = "coding"
	SubCategoryCreative  SubCategory = "creative"
	SubCategoryRealistic SubCategory = "realistic"
	SubCategoryArtistic  SubCategory = "artistic"
)

var subCategories = map[Category][]SubCategory{
	CategoryText:  {SubCategoryGeneral, SubCategoryResearch, SubCategoryCoding, SubCategoryCreative},
	CategoryImage: {SubCategoryGeneral, SubCategoryRealistic, SubCategoryArtistic},
}

// SubCategoriesOf returns the enumerated sub-categories of c, general first.
func SubCategoriesOf(c Category) []SubCategory {
	subs := subCategories[c]
	out := make([]SubCategory, len(subs))
	copy(out, subs)
	return out
}

// IsSubCategoryOf reports whether s is enumerated for c.
func IsSubCategoryOf(c Category, s SubCategory) bool {
	for _, sub := range subCategories[c] {
		if sub == s {
			return true
		}
	}
	return false
}

// Capability pairs a provider with a category it can serve.
type Capability struct {
	Provider ProviderID
	Category Category
}

func (c Capability) String() string {
	return fmt.Sprintf("%s/%s", c.Provider, c.Category)
}
