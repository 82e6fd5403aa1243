package openai

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Default completion settings
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 4000
)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Logger      *logrus.Logger
	Temperature float64
	MaxTokens   int
	Model       string
}

// NewOpenAIConfig creates a new OpenAIConfig with OpenAI-specific values from environment variables
func NewOpenAIConfig() (*OpenAIConfig, error) {
	config := &OpenAIConfig{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     os.Getenv("OPENAI_BASE_URL"),
		Model:       os.Getenv("OPENAI_MODEL"),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Logger:      logrus.New(),
	}

	if raw := os.Getenv("OPENAI_MAX_TOKENS"); raw != "" {
		tokens, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid OPENAI_MAX_TOKENS %q: %w", raw, err)
		}
		config.MaxTokens = tokens
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	// Set default values if not provided
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return nil
}
