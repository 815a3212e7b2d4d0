package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Bedrock invokes an Amazon Titan text model through the Bedrock runtime.
type Bedrock struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

// NewBedrock creates a Bedrock invoker using the default AWS credential
// chain (env, shared config, IMDS).
func NewBedrock(ctx context.Context, cfg Config) (*Bedrock, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "amazon.titan-text-express-v1"
	}

	return &Bedrock{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Titan request/response envelopes.
type titanRequest struct {
	InputText string      `json:"inputText"`
	Config    titanConfig `json:"textGenerationConfig"`
}

type titanConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

type titanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// Invoke sends the prompt to the model and returns the raw output text.
func (b *Bedrock) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(titanRequest{
		InputText: prompt,
		Config: titanConfig{
			MaxTokenCount: b.maxTokens,
			Temperature:   0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal titan request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode titan response: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("empty titan response")
	}
	return strings.TrimSpace(resp.Results[0].OutputText), nil
}
