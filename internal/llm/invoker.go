// Package llm abstracts the external text-generation capability behind a
// single blocking Invoke call. Two implementations ship: AWS Bedrock and
// any OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Invoker is one blocking call to the text-generation capability.
// Implementations must be safe for concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterizes an invoker.
type Config struct {
	Provider  string // "bedrock" or "openai"
	ModelID   string
	Region    string
	APIURL    string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration

	// Static AWS credentials for Bedrock. Empty means the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string
}

// New builds an Invoker for the configured provider.
func New(ctx context.Context, cfg Config) (Invoker, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "bedrock":
		return NewBedrock(ctx, cfg)
	case "openai":
		return NewHTTP(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// CleanJSON strips markdown fences and leading prose from a model reply so
// the remainder parses as JSON. Models wrap JSON in ``` fences often
// enough that every caller needs this.
func CleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx >= 0 {
			raw = raw[:idx]
		}
		raw = strings.TrimSpace(raw)
	}

	// Tolerate prose before the payload: cut to the first brace/bracket.
	objIdx := strings.IndexByte(raw, '{')
	arrIdx := strings.IndexByte(raw, '[')
	start := objIdx
	if start < 0 || (arrIdx >= 0 && arrIdx < start) {
		start = arrIdx
	}
	if start > 0 {
		raw = raw[start:]
	}
	return raw
}
