// Package classifier decides which category and sub-category a prompt belongs
// to so the provider registry can route it. Classification never fails: when
// the remote step is unavailable or gives an unusable answer, a deterministic
// keyword pass decides.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/genforge-api/internal/platform/logger"
	"github.com/phrazzld/genforge-api/internal/provider"
	"github.com/phrazzld/genforge-api/internal/redact"
)

// Source records which step produced a Classification.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceKeyword Source = "keyword"
)

// DefaultTimeout bounds the remote refinement step when none is configured.
const DefaultTimeout = 5 * time.Second

// Classification is the routing decision for one prompt.
type Classification struct {
	Category    provider.Category
	SubCategory provider.SubCategory
	Source      Source
}

// Refiner asks a language model to answer a short classification question.
type Refiner interface {
	Refine(ctx context.Context, instructions, prompt string) (string, error)
}

var imageKeywords = []string{"image", "picture", "photo", "draw", "paint", "visual"}

type keywordRule struct {
	sub      provider.SubCategory
	keywords []string
}

// First matching rule wins.
var keywordRules = []keywordRule{
	{provider.SubCategoryResearch, []string{"research", "study", "analyze", "investigate"}},
	{provider.SubCategoryCoding, []string{"code", "program", "function", "algorithm"}},
	{provider.SubCategoryCreative, []string{"story", "poem", "creative", "imagine"}},
	{provider.SubCategoryRealistic, []string{"realistic", "photo", "photograph"}},
	{provider.SubCategoryArtistic, []string{"artistic", "painting", "drawing", "art"}},
}

// Classifier combines an optional remote Refiner with the keyword pass.
type Classifier struct {
	refiner Refiner
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Classifier. A nil refiner disables the remote step.
func New(refiner Refiner, timeout time.Duration, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{
		refiner: refiner,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "classifier")),
	}
}

// Classify returns the category and sub-category for prompt.
func (c *Classifier) Classify(ctx context.Context, prompt string) Classification {
	category := CoarseCategory(prompt)

	if c.refiner != nil {
		if sub, ok := c.refine(ctx, category, prompt); ok {
			return Classification{Category: category, SubCategory: sub, Source: SourceRemote}
		}
	}

	return Classification{
		Category:    category,
		SubCategory: keywordSubCategory(category, strings.ToLower(prompt)),
		Source:      SourceKeyword,
	}
}

func (c *Classifier) refine(
	ctx context.Context,
	category provider.Category,
	prompt string,
) (provider.SubCategory, bool) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	refineCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.refiner.Refine(refineCtx, instructionsFor(category), prompt)
	if err != nil {
		log.Warn("remote classification failed, using keyword fallback",
			slog.String("error", redact.Error(err)))
		return "", false
	}

	sub := provider.SubCategory(normalizeAnswer(answer))
	if !provider.IsSubCategoryOf(category, sub) {
		log.Warn("remote classification answered outside the allowed set",
			slog.String("answer", answer),
			slog.String("category", string(category)))
		return "", false
	}
	return sub, true
}

// ClassifyLocal classifies prompt with the keyword pass only.
func ClassifyLocal(prompt string) Classification {
	category := CoarseCategory(prompt)
	return Classification{
		Category:    category,
		SubCategory: keywordSubCategory(category, strings.ToLower(prompt)),
		Source:      SourceKeyword,
	}
}

// CoarseCategory decides between text and image.
func CoarseCategory(prompt string) provider.Category {
	lowered := strings.ToLower(prompt)
	for _, keyword := range imageKeywords {
		if strings.Contains(lowered, keyword) {
			return provider.CategoryImage
		}
	}
	return provider.CategoryText
}

// keywordSubCategory only considers rules valid for category.
func keywordSubCategory(category provider.Category, lowered string) provider.SubCategory {
	for _, rule := range keywordRules {
		if !provider.IsSubCategoryOf(category, rule.sub) {
			continue
		}
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.sub
			}
		}
	}
	return provider.SubCategoryGeneral
}

func instructionsFor(category provider.Category) string {
	subs := provider.SubCategoriesOf(category)
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = string(s)
	}
	return fmt.Sprintf(
		"Classify the user's %s generation request into exactly one of these categories: %s. "+
			"Respond with the category name only.",
		category, strings.Join(names, ", "),
	)
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(answer), ".\"'`*: \n"))
}
