package translate

import (
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when an OpenAI completer is requested without a key.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

// NewOpenAICompleter creates a completer for the OpenAI API or a compatible endpoint.
func NewOpenAICompleter(apiKey, baseURL string) (*openai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg), nil
}
