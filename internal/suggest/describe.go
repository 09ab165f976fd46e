package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
)

// Describer produces the short, punchy restaurant descriptions shown in the
// catalog.
type Describer struct {
	gen Generator
}

// NewDescriber builds a Describer over the generator.
func NewDescriber(gen Generator) *Describer {
	return &Describer{gen: gen}
}

// Describe writes a one-sentence description from the user's free-form
// input.
func (d *Describer) Describe(ctx context.Context, input string) (string, error) {
	prompt := fmt.Sprintf(`Based on this user input: %q, write a very short, punchy, and fun one-sentence description for a restaurant. Example: "Juicy burgers and crispy fries."`, input)
	text, err := d.gen.Generate(ctx, prompt, nil)
	if err != nil {
		return "", &apperr.SuggestionServiceError{Step: "describe", Err: err}
	}
	return stripQuotes(text), nil
}

// Rewrite reworks an existing description following the instruction.
func (d *Describer) Rewrite(ctx context.Context, current, instruction string) (string, error) {
	prompt := fmt.Sprintf(`Rewrite this restaurant description: %q with this instruction: %q. Make it very short, punchy, and fun. Return only the new sentence.`, current, instruction)
	text, err := d.gen.Generate(ctx, prompt, nil)
	if err != nil {
		return "", &apperr.SuggestionServiceError{Step: "rewrite", Err: err}
	}
	return stripQuotes(text), nil
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `"`, "")
}
