package score

import (
	"sort"
	"strings"
)

// Keywords holds the vocabulary used for the plausibility term and the trivial pre-check.
// Matching is substring-based on lower-cased text.
type Keywords struct {
	Hazard  map[string][]string // category -> indicative phrases
	Trivial []string            // noise terms (debris, litter)
}

// DefaultKeywords returns the built-in keyword tables
func DefaultKeywords() *Keywords {
	return &Keywords{
		Hazard: map[string][]string{
			"flood":          {"flood", "waterlogging", "overflow", "submerged"},
			"tsunami":        {"tsunami", "seismic wave"},
			"high_waves":     {"high waves", "tidal waves", "swells"},
			"storm_surge":    {"storm surge", "cyclone surge"},
			"coastal_damage": {"erosion", "damage", "sea wall break"},
			"fire":           {"fire", "burning", "wildfire"},
			"earthquake":     {"earthquake", "tremor", "quake"},
		},
		Trivial: []string{"stone", "rock", "stick", "leaf", "plastic", "garbage", "branch"},
	}
}

// Categories returns the hazard categories in stable order
func (k *Keywords) Categories() []string {
	cats := make([]string, 0, len(k.Hazard))
	for c := range k.Hazard {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// HasHazard reports whether text contains any hazard phrase of any category
func (k *Keywords) HasHazard(text string) bool {
	lower := strings.ToLower(text)
	for _, words := range k.Hazard {
		if containsAny(lower, words) {
			return true
		}
	}
	return false
}

// HasTrivial reports whether text contains any trivial term
func (k *Keywords) HasTrivial(text string) bool {
	return containsAny(strings.ToLower(text), k.Trivial)
}

// HazardHits counts matching phrases per category
func (k *Keywords) HazardHits(text string) map[string]int {
	lower := strings.ToLower(text)
	hits := make(map[string]int, len(k.Hazard))
	for cat, words := range k.Hazard {
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits[cat]++
			}
		}
	}
	return hits
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
