package classify

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/ppiankov/hazardscore/internal/score"
)

// seedVocabulary holds tokens from labelled example reports per category
var seedVocabulary = map[string][]string{
	"flood":      {"flood", "city", "area", "heavy", "rainfall", "causing", "waterlogging"},
	"tsunami":    {"huge", "tsunami", "approaching"},
	"high_waves": {"high", "waves", "reported", "near", "coast"},
	"fire":       {"forest", "fire", "spreading", "rapidly"},
	"earthquake": {"earthquake", "tremors", "felt"},
}

const (
	phraseWeight = 1.0 // keyword table phrase hit
	tokenWeight  = 0.5 // seed vocabulary token hit
	sharpness    = 2.0 // softmax inverse temperature
)

// KeywordClassifier is a local, deterministic classifier over the keyword tables.
// Confidence is a softmax over per-category hit scores, so it always covers every category.
type KeywordClassifier struct {
	keywords   *score.Keywords
	categories []string
	vocabulary map[string]map[string]struct{}
}

// NewKeywordClassifier creates a classifier over the given keyword tables.
// A nil table selects the defaults.
func NewKeywordClassifier(keywords *score.Keywords) *KeywordClassifier {
	if keywords == nil {
		keywords = score.DefaultKeywords()
	}
	vocab := make(map[string]map[string]struct{})
	for cat, tokens := range seedVocabulary {
		if _, known := keywords.Hazard[cat]; !known {
			continue
		}
		set := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			set[tok] = struct{}{}
		}
		vocab[cat] = set
	}

	return &KeywordClassifier{
		keywords:   keywords,
		categories: keywords.Categories(),
		vocabulary: vocab,
	}
}

// Name returns the classifier name
func (c *KeywordClassifier) Name() string {
	return "keyword"
}

// IsAvailable is always true for the local classifier
func (c *KeywordClassifier) IsAvailable(ctx context.Context) bool {
	return true
}

// Classify scores each category and picks the best; ties go to the
// alphabetically first category.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := c.keywords.HazardHits(text)
	tokens := tokenize(text)

	logits := make(map[string]float64, len(c.categories))
	for _, cat := range c.categories {
		l := phraseWeight * float64(hits[cat])
		for _, tok := range tokens {
			if _, ok := c.vocabulary[cat][tok]; ok {
				l += tokenWeight
			}
		}
		logits[cat] = l
	}

	conf := softmax(logits)

	best := ""
	for _, cat := range c.categories {
		if best == "" || conf[cat] > conf[best] {
			best = cat
		}
	}

	return &Prediction{Category: best, Confidence: conf}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func softmax(logits map[string]float64) map[string]float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}

	sum := 0.0
	out := make(map[string]float64, len(logits))
	for k, l := range logits {
		e := math.Exp(sharpness * (l - maxLogit))
		out[k] = e
		sum += e
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}
