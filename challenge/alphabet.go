package challenge

import (
	"fmt"
	"strings"
)

// BaseAlphabet is the full glyph set challenges are drawn from.
const BaseAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// AlphabetSpec is the working glyph set after exclusions. Characters and
// Excluded never intersect.
type AlphabetSpec struct {
	Characters []rune
	Excluded   []rune
}

// NewAlphabet builds the working alphabet with every glyph of excluded removed.
// Duplicate exclusions are collapsed.
func NewAlphabet(excluded string) (AlphabetSpec, error) {
	if err := ValidateExcluded(excluded); err != nil {
		return AlphabetSpec{}, err
	}

	var alpha AlphabetSpec
	seen := make(map[rune]bool, len(excluded))
	for _, r := range excluded {
		if seen[r] {
			continue
		}
		seen[r] = true
		alpha.Excluded = append(alpha.Excluded, r)
	}

	alpha.Characters = make([]rune, 0, len(BaseAlphabet))
	for _, r := range BaseAlphabet {
		if !seen[r] {
			alpha.Characters = append(alpha.Characters, r)
		}
	}
	if len(alpha.Characters) == 0 {
		return AlphabetSpec{}, fmt.Errorf("%w: exclusions leave no glyphs", ErrInvalidInput)
	}
	return alpha, nil
}

// ValidateExcluded reports whether excluded contains only base-alphabet glyphs.
func ValidateExcluded(excluded string) error {
	for _, r := range excluded {
		if !strings.ContainsRune(BaseAlphabet, r) {
			return fmt.Errorf("%w: excluded glyph %q is not alphanumeric", ErrInvalidInput, r)
		}
	}
	return nil
}
