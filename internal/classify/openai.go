package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/hazardscore/internal/util"
)

// OpenAIClassifier classifies report text with an OpenAI-compatible chat model
type OpenAIClassifier struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIClassifier creates a new OpenAI classifier
func NewOpenAIClassifier(config Config) (*OpenAIClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = util.NewHTTPClient(requestTimeout(config), config.HTTPProxy, config.HTTPSProxy)

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		name:   "openai",
	}, nil
}

// NewOllamaClassifier talks to Ollama through its OpenAI-compatible /v1 endpoint
func NewOllamaClassifier(config Config) (*OpenAIClassifier, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434/v1"
	}
	if config.APIKey == "" {
		config.APIKey = "ollama" // Ollama ignores the key but the client requires one
	}
	if config.Model == "" {
		config.Model = "llama3.2"
	}

	c, err := NewOpenAIClassifier(config)
	if err != nil {
		return nil, err
	}
	c.name = "ollama"
	return c, nil
}

// Name returns the classifier name
func (c *OpenAIClassifier) Name() string {
	return c.name
}

// IsAvailable checks the endpoint by listing models
func (c *OpenAIClassifier) IsAvailable(ctx context.Context) bool {
	if _, err := c.client.ListModels(ctx); err != nil {
		slog.Warn("classifier endpoint check failed", "classifier", c.name, "error", err)
		return false
	}
	return true
}

type chatPrediction struct {
	Category   string             `json:"category"`
	Confidence map[string]float64 `json:"confidence"`
}

// Classify asks the model for a JSON prediction
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	model := c.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, requestTimeout(c.config))
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You label hazard reports. Reply with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(text, c.config.Categories),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", c.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", c.name)
	}

	return parsePrediction(resp.Choices[0].Message.Content)
}

// parsePrediction decodes the model's JSON, tolerating markdown code fences.
// Confidence values are clamped to [0,1]; unknown categories pass through.
func parsePrediction(content string) (*Prediction, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var cp chatPrediction
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &cp); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	category := strings.ToLower(strings.TrimSpace(cp.Category))
	if category == "" {
		return nil, fmt.Errorf("prediction has no category")
	}
	if len(cp.Confidence) == 0 {
		return nil, fmt.Errorf("prediction has no confidence values")
	}

	conf := make(map[string]float64, len(cp.Confidence))
	for k, v := range cp.Confidence {
		conf[strings.ToLower(k)] = min(1.0, max(0.0, v))
	}

	return &Prediction{Category: category, Confidence: conf}, nil
}
