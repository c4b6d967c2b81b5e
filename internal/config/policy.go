package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vytor/studydeck/internal/flashcard"
)

// PolicyFile is the TOML document holding scheduling overrides:
//
//	[scheduling]
//	again_ease_penalty = 0.25
//	promotion_streak = 2
//
//	[scheduling.seeds]
//	easy = 4
type PolicyFile struct {
	Scheduling flashcard.Policy `toml:"scheduling"`
}

// LoadPolicy decodes path over flashcard.DefaultPolicy, so a file only needs
// the values it changes. An empty path yields the defaults. Unknown keys are
// rejected to catch typos.
func LoadPolicy(path string) (flashcard.Policy, error) {
	file := PolicyFile{Scheduling: flashcard.DefaultPolicy()}
	if path == "" {
		return file.Scheduling, nil
	}

	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return flashcard.Policy{}, fmt.Errorf("failed to decode policy: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return flashcard.Policy{}, fmt.Errorf("unknown policy keys: %s", strings.Join(keys, ", "))
	}
	if err := file.Scheduling.Validate(); err != nil {
		return flashcard.Policy{}, err
	}
	return file.Scheduling, nil
}
