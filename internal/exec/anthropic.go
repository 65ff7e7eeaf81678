package exec

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/swarmq/swarmq/pkg/models"
)

// LLMConfig contains configuration for the Claude-backed backend.
type LLMConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes requests through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// LLMBackend executes text-shaped micro-tasks through the Anthropic
// Messages API. It is an adapter for the injectable execution point;
// the scheduler itself never depends on it.
type LLMBackend struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewLLMBackend creates a Claude-backed execution backend.
func NewLLMBackend(cfg LLMConfig) (*LLMBackend, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &LLMBackend{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Execute implements Backend. The task description and parameters become
// the prompt; the first text block of the response becomes the result.
func (b *LLMBackend) Execute(ctx context.Context, task *models.Task) (map[string]any, error) {
	prompt := fmt.Sprintf("Task type: %s\n\n%s", task.Type, task.Description)
	if len(task.Params) > 0 {
		prompt = fmt.Sprintf("%s\n\nParameters: %v", prompt, task.Params)
	}

	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("messages api: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}

	return map[string]any{
		"text":          text,
		"model":         string(b.model),
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}, nil
}

var _ Backend = (*LLMBackend)(nil)
