package safety

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patterns holds the raw high-risk marker strings organized by category.
// All matching is plain case-insensitive substring containment —
// multilingual or obfuscated phrasings will slip through; that gap is
// accepted rather than papered over with guesswork.
type Patterns struct {
	InstructionOverride []string `yaml:"instruction_override"`
	BulkExtraction      []string `yaml:"bulk_extraction"`
	Identifiers         []string `yaml:"identifiers"`
}

// DefaultPatterns contains the built-in marker lists.
var DefaultPatterns = Patterns{
	InstructionOverride: []string{
		"ignore previous instructions",
		"ignore all previous instructions",
		"disregard your instructions",
		"system: you are now",
		"pretend you are",
		"roleplay as",
	},
	BulkExtraction: []string{
		"print database",
		"print all patient",
		"all patient records",
		"dump the database",
		"list all patients",
		"export all records",
		"show me the database",
	},
	Identifiers: []string{
		"ssn",
		"social security",
		"dob",
		"date of birth",
		"home address",
	},
}

// PatternSet is a compiled, matchable view over Patterns.
type PatternSet struct {
	raw Patterns
}

// NewPatternSet creates a PatternSet from raw patterns.
func NewPatternSet(p Patterns) *PatternSet {
	return &PatternSet{raw: p}
}

// NewDefaultPatternSet creates a PatternSet with the built-in markers.
func NewDefaultPatternSet() *PatternSet {
	return NewPatternSet(DefaultPatterns)
}

// LoadPatterns reads marker lists from a YAML file. Empty path or a
// missing file falls back to the built-in defaults.
func LoadPatterns(path string) (*PatternSet, error) {
	if path == "" {
		return NewDefaultPatternSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefaultPatternSet(), nil
		}
		return nil, err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return NewPatternSet(p), nil
}

// Match returns one attack-type tag per marker found in the message.
// Empty result means no known high-risk marker matched.
func (ps *PatternSet) Match(message string) []string {
	lower := strings.ToLower(message)

	var tags []string
	appendMatches := func(markers []string) {
		for _, m := range markers {
			if m == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(m)) {
				tags = append(tags, "keyword_"+strings.ReplaceAll(strings.ToLower(m), " ", "_"))
			}
		}
	}

	appendMatches(ps.raw.InstructionOverride)
	appendMatches(ps.raw.BulkExtraction)
	appendMatches(ps.raw.Identifiers)
	return tags
}
