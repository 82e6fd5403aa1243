package llm

import (
	"context"
)

// Client defines the interface for language model completions
type Client interface {
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// Option defines functional options for LLM configuration
type Option func(*Options)

// Options holds configuration for LLM calls
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
	JSONMode    bool
}

// WithTemperature sets the temperature for generation
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the maximum tokens for generation
func WithMaxTokens(tokens int) Option {
	return func(o *Options) {
		o.MaxTokens = tokens
	}
}

// WithModel sets the model to use
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithJSONMode asks the provider for a strict JSON object response
func WithJSONMode() Option {
	return func(o *Options) {
		o.JSONMode = true
	}
}

// ApplyOptions folds opts over defaults
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}
