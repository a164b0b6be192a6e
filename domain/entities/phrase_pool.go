package entities

import "fmt"

// Category names an intent and the phrase list spoken for it
type Category string

const (
	CategoryGreeting    Category = "greeting"
	CategoryHelp        Category = "help"
	CategoryCombat      Category = "combat"
	CategoryDirection   Category = "direction"
	CategoryAcknowledge Category = "acknowledge"
	CategoryConfusion   Category = "confusion"
	CategoryGeneric     Category = "generic"
)

// Categories lists every category a PhrasePool must carry
var Categories = []Category{
	CategoryGreeting,
	CategoryHelp,
	CategoryCombat,
	CategoryDirection,
	CategoryAcknowledge,
	CategoryConfusion,
	CategoryGeneric,
}

// PhrasePool is an immutable set of candidate replies per category
type PhrasePool struct {
	phrases map[Category][]string
}

// NewPhrasePool copies phrases into a pool. Every category must be present
// with at least one non-empty phrase.
func NewPhrasePool(phrases map[Category][]string) (*PhrasePool, error) {
	pool := &PhrasePool{phrases: make(map[Category][]string, len(Categories))}

	for _, category := range Categories {
		list := phrases[category]
		if len(list) == 0 {
			return nil, fmt.Errorf("phrase pool: category %q has no phrases", category)
		}
		for i, phrase := range list {
			if phrase == "" {
				return nil, fmt.Errorf("phrase pool: category %q phrase %d is empty", category, i)
			}
		}
		pool.phrases[category] = append([]string(nil), list...)
	}

	return pool, nil
}

// Phrases returns a copy of the phrases for a category
func (p *PhrasePool) Phrases(category Category) []string {
	return append([]string(nil), p.phrases[category]...)
}

// Len returns the number of phrases in a category
func (p *PhrasePool) Len(category Category) int {
	return len(p.phrases[category])
}

// At returns the i-th phrase of a category
func (p *PhrasePool) At(category Category, i int) string {
	return p.phrases[category][i]
}
