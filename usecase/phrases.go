package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/santoryu/domain/entities"
)

// defaultPhrases is the built-in swordsman persona
var defaultPhrases = map[entities.Category][]string{
	entities.CategoryGreeting: {
		"Hmph, what do you want?",
		"You better have a good reason for interrupting my training.",
		"Is there a strong opponent nearby?",
		"Make it quick, I've got training to do.",
		"Yeah, I'm here. What's the situation?",
	},
	entities.CategoryHelp: {
		"Need help? Heh, you came to the right swordsman.",
		"What kind of trouble are you in? I'll cut through it.",
		"If it's about directions, I... uh... might not be the best person to ask.",
		"Tell me what's wrong. I'll handle it with my three-sword style!",
	},
	entities.CategoryConfusion: {
		"Huh? Speak clearly, I can't understand what you're saying.",
		"You're making less sense than that stupid cook.",
		"Are you lost? Because I'm definitely not... the buildings just keep moving.",
		"What are you mumbling about?",
		"Speak up! I can barely hear you over the sound of my training.",
		"Your voice is weaker than a Marine recruit's sword skills.",
	},
	entities.CategoryAcknowledge: {
		"I see...",
		"Interesting...",
		"Hmph, is that so?",
		"Whatever...",
	},
	entities.CategoryCombat: {
		"Sounds like a challenge. I'm in!",
		"Finally, something worth drawing my swords for!",
		"Heh, this might be fun.",
		"Three-sword style should be enough for this.",
	},
	entities.CategoryDirection: {
		"I know exactly where to go! The buildings just keep moving...",
		"Follow me! Though the streets seem to have changed again...",
		"It's this way! ...probably.",
		"The destination keeps moving, but I'll get us there!",
	},
	entities.CategoryGeneric: {
		"That's nothing compared to becoming the world's greatest swordsman.",
		"As long as it doesn't interfere with my training.",
		"Luffy would probably find that interesting.",
		"Sounds like something that cook would care about.",
	},
}

// DefaultPhrasePool returns the built-in persona pool
func DefaultPhrasePool() *entities.PhrasePool {
	pool, err := entities.NewPhrasePool(defaultPhrases)
	if err != nil {
		panic(fmt.Sprintf("default phrase pool: %v", err))
	}
	return pool
}

// LoadPhrasePool reads category overrides from a YAML file keyed by category
// name. Categories missing from the file keep their built-in phrases.
//
//	greeting:
//	  - "Hmph, what do you want?"
//	combat:
//	  - "Heh, this might be fun."
func LoadPhrasePool(path string) (*entities.PhrasePool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrases file %s: %w", path, err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse phrases file %s: %w", path, err)
	}

	known := make(map[entities.Category]bool, len(entities.Categories))
	for _, category := range entities.Categories {
		known[category] = true
	}

	merged := make(map[entities.Category][]string, len(defaultPhrases))
	for category, phrases := range defaultPhrases {
		merged[category] = phrases
	}
	for name, phrases := range overrides {
		category := entities.Category(name)
		if !known[category] {
			return nil, fmt.Errorf("phrases file %s: unknown category %q", path, name)
		}
		merged[category] = phrases
	}

	return entities.NewPhrasePool(merged)
}
