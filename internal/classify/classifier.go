package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/hazardscore/internal/model"
	"github.com/ppiankov/hazardscore/internal/score"
)

// Classifier maps report text to a hazard category with per-category confidence.
// Implementations hold no per-request state.
type Classifier interface {
	// Name returns the classifier name
	Name() string

	// Classify predicts the hazard category for text
	Classify(ctx context.Context, text string) (*Prediction, error)

	// IsAvailable checks if the classifier is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Prediction is the classifier output
type Prediction struct {
	Category   string             `json:"category"`
	Confidence map[string]float64 `json:"confidence"`
}

// MaxConfidence returns the highest per-category confidence (0 when empty)
func (p *Prediction) MaxConfidence() float64 {
	best := 0.0
	for _, v := range p.Confidence {
		if v > best {
			best = v
		}
	}
	return best
}

// Config holds classifier configuration
type Config struct {
	// Provider name: "keyword", "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Proxies for outbound API calls (empty falls back to HTTP_PROXY/HTTPS_PROXY)
	HTTPProxy  string
	HTTPSProxy string

	// Categories the remote classifier may choose from
	Categories []string
}

// DefaultConfig returns the local keyword classifier configuration
func DefaultConfig() Config {
	return Config{
		Provider:   "keyword",
		Timeout:    30,
		Categories: score.DefaultKeywords().Categories(),
	}
}

// ConfigFromModel converts model.ClassifierConfig to classify.Config
func ConfigFromModel(mc model.ClassifierConfig) Config {
	cfg := DefaultConfig()
	if mc.Provider != "" {
		cfg.Provider = mc.Provider
	}
	cfg.Model = mc.Model
	cfg.APIKey = mc.APIKey
	cfg.BaseURL = mc.BaseURL
	cfg.HTTPProxy = mc.HTTPProxy
	cfg.HTTPSProxy = mc.HTTPSProxy
	if mc.Timeout > 0 {
		cfg.Timeout = mc.Timeout
	}
	return cfg
}

// New creates a classifier based on configuration
func New(config Config) (Classifier, error) {
	switch strings.ToLower(config.Provider) {
	case "keyword", "":
		return NewKeywordClassifier(score.DefaultKeywords()), nil

	case "openai":
		return NewOpenAIClassifier(config)

	case "anthropic", "claude":
		return NewAnthropicClassifier(config)

	case "ollama":
		return NewOllamaClassifier(config)

	default:
		return nil, fmt.Errorf("unknown classifier: %s (supported: keyword, openai, anthropic, ollama)", config.Provider)
	}
}

func requestTimeout(c Config) time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// BuildPrompt constructs the instruction sent to chat-model classifiers
func BuildPrompt(text string, categories []string) string {
	cats := append([]string(nil), categories...)
	sort.Strings(cats)

	return fmt.Sprintf(`Classify this crowd-sourced hazard report.

Allowed categories: %s
Use "%s" when the report describes something trivial (litter, debris, a fallen leaf) rather than a hazard.

Respond with a single JSON object and nothing else:
{"category": "<one allowed category>", "confidence": {"<category>": <probability 0..1>, ...}}

Report:
%s`, strings.Join(cats, ", "), model.HazardIgnore, text)
}
