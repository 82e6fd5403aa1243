package openai

import (
	"context"
	"fmt"

	"github.com/lisanmuaddib/lot-ingest/pkg/llm"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client implements llm.Client on top of the langchaingo OpenAI backend
type Client struct {
	logger *logrus.Logger
	llm    llms.Model
	config *OpenAIConfig
}

// NewOpenAIClient creates a client for the configured model
func NewOpenAIClient(config *OpenAIConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI: %w", err)
	}

	return NewClientWithModel(model, config), nil
}

// NewClientWithModel wraps an already constructed langchaingo model
func NewClientWithModel(model llms.Model, config *OpenAIConfig) *Client {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	return &Client{
		logger: config.Logger,
		llm:    model,
		config: config,
	}
}

// GetLLM exposes the underlying langchaingo model
func (c *Client) GetLLM() llms.Model {
	return c.llm
}

// Complete implements llm.Client. Provider errors are classified so callers
// can distinguish payment exhaustion and rate limiting from other failures.
func (c *Client) Complete(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Model:       c.config.Model,
	}, opts...)

	c.logger.WithFields(logrus.Fields{
		"temperature": options.Temperature,
		"maxTokens":   options.MaxTokens,
		"model":       options.Model,
		"json_mode":   options.JSONMode,
		"prompt_len":  len(prompt),
	}).Debug("Generating completion")

	callOpts := []llms.CallOption{
		llms.WithTemperature(options.Temperature),
		llms.WithMaxTokens(options.MaxTokens),
		llms.WithModel(options.Model),
	}
	if options.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", llm.Classify(err))
	}

	return completion, nil
}
