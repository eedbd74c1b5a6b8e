package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/genforge-api/internal/generation"
)

// Adapters binds providers to their generator implementations.
type Adapters struct {
	Text  map[ProviderID]generation.TextGenerator
	Image map[ProviderID]generation.ImageGenerator
}

// Route is a resolved (provider, model) choice for one request.
type Route struct {
	Provider    ProviderID
	Category    Category
	SubCategory SubCategory
	Model       string
}

// Registry answers routing questions from an immutable capability table.
// It is safe for concurrent use.
type Registry struct {
	table Table
	text  map[ProviderID]generation.TextGenerator
	image map[ProviderID]generation.ImageGenerator

	// modelIndex maps a model id to the first capability that lists it.
	modelIndex map[string]Capability
}

// New validates table against the bound adapters and returns a Registry.
// Any inconsistency is a configuration error and should abort startup.
func New(table Table, adapters Adapters) (*Registry, error) {
	r := &Registry{
		table:      table,
		text:       make(map[ProviderID]generation.TextGenerator, len(adapters.Text)),
		image:      make(map[ProviderID]generation.ImageGenerator, len(adapters.Image)),
		modelIndex: make(map[string]Capability),
	}
	for p, g := range adapters.Text {
		if g != nil {
			r.text[p] = g
		}
	}
	for p, g := range adapters.Image {
		if g != nil {
			r.image[p] = g
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	r.buildModelIndex()
	return r, nil
}

func (r *Registry) validate() error {
	for _, category := range []Category{CategoryText, CategoryImage} {
		subs, ok := r.table.Capabilities[category]
		if !ok {
			return fmt.Errorf("%w: capability table has no %s category", generation.ErrInvalidConfig, category)
		}
		if len(subs[SubCategoryGeneral]) == 0 {
			return fmt.Errorf("%w: %s category has no general providers", generation.ErrInvalidConfig, category)
		}
	}

	for category, subs := range r.table.Capabilities {
		if !category.Valid() {
			return fmt.Errorf("%w: unknown category %q", generation.ErrInvalidConfig, category)
		}
		for sub, providers := range subs {
			if !IsSubCategoryOf(category, sub) {
				return fmt.Errorf("%w: unknown sub-category %q for %s", generation.ErrInvalidConfig, sub, category)
			}
			for _, p := range providers {
				if !p.Valid() {
					return fmt.Errorf("%w: unknown provider %q in %s/%s", generation.ErrInvalidConfig, p, category, sub)
				}
				if _, err := r.ModelFor(p, category, sub); err != nil {
					return err
				}
				if !r.hasAdapter(p, category) {
					return fmt.Errorf("%w: no adapter bound for %s", generation.ErrInvalidConfig, Capability{p, category})
				}
			}
		}
	}

	for p, byCategory := range r.table.Models {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown provider %q in model table", generation.ErrInvalidConfig, p)
		}
		for category := range byCategory {
			if !category.Valid() {
				return fmt.Errorf("%w: unknown category %q in model table", generation.ErrInvalidConfig, category)
			}
		}
	}

	return nil
}

// buildModelIndex records every model id, walking providers in a fixed
// order so the reverse lookup is deterministic.
func (r *Registry) buildModelIndex() {
	for _, p := range KnownProviders {
		byCategory := r.table.Models[p]
		for _, category := range []Category{CategoryText, CategoryImage} {
			bySub := byCategory[category]
			subs := make([]string, 0, len(bySub))
			for sub := range bySub {
				subs = append(subs, string(sub))
			}
			sort.Strings(subs)
			for _, sub := range subs {
				model := strings.ToLower(bySub[SubCategory(sub)])
				if _, seen := r.modelIndex[model]; !seen && model != "" {
					r.modelIndex[model] = Capability{Provider: p, Category: category}
				}
			}
		}
	}
}

func (r *Registry) hasAdapter(p ProviderID, c Category) bool {
	switch c {
	case CategoryText:
		_, ok := r.text[p]
		return ok
	case CategoryImage:
		_, ok := r.image[p]
		return ok
	default:
		return false
	}
}

// ProvidersFor returns the ordered providers for (category, sub). A
// sub-category with no entry falls back to the category's general list.
// The returned slice is a copy.
func (r *Registry) ProvidersFor(category Category, sub SubCategory) []ProviderID {
	subs, ok := r.table.Capabilities[category]
	if !ok {
		return nil
	}
	providers, ok := subs[sub]
	if !ok || len(providers) == 0 {
		providers = subs[SubCategoryGeneral]
	}
	out := make([]ProviderID, len(providers))
	copy(out, providers)
	return out
}

// ModelFor returns the model a provider uses for (category, sub), falling
// back to the provider's general model for the category.
func (r *Registry) ModelFor(p ProviderID, category Category, sub SubCategory) (string, error) {
	if model, ok := r.table.model(p, category, sub); ok {
		return model, nil
	}
	if model, ok := r.table.model(p, category, SubCategoryGeneral); ok {
		return model, nil
	}
	return "", fmt.Errorf("%w: no %s model configured for %s", generation.ErrInvalidConfig, category, p)
}

// Resolve picks the primary provider and its model for (category, sub).
func (r *Registry) Resolve(category Category, sub SubCategory) (Route, error) {
	providers := r.ProvidersFor(category, sub)
	if len(providers) == 0 {
		return Route{}, fmt.Errorf("%w: no providers for category %q", generation.ErrInvalidConfig, category)
	}
	primary := providers[0]
	model, err := r.ModelFor(primary, category, sub)
	if err != nil {
		return Route{}, err
	}
	return Route{Provider: primary, Category: category, SubCategory: sub, Model: model}, nil
}

// ResolveModel finds the provider and category serving an explicit model id.
// Models listed in the table win; otherwise well-known naming patterns decide.
func (r *Registry) ResolveModel(model string) (ProviderID, Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(model))
	if capability, ok := r.modelIndex[normalized]; ok {
		return capability.Provider, capability.Category, nil
	}
	if capability, ok := matchModelPattern(normalized); ok {
		return capability.Provider, capability.Category, nil
	}
	return "", "", fmt.Errorf("%w: unknown model %q", generation.ErrInvalidConfig, model)
}

// TextGenerator returns the text adapter bound to p.
func (r *Registry) TextGenerator(p ProviderID) (generation.TextGenerator, error) {
	g, ok := r.text[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not generate text", generation.ErrUnsupportedCapability, p)
	}
	return g, nil
}

// ImageGenerator returns the image adapter bound to p.
func (r *Registry) ImageGenerator(p ProviderID) (generation.ImageGenerator, error) {
	g, ok := r.image[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not generate images", generation.ErrUnsupportedCapability, p)
	}
	return g, nil
}
