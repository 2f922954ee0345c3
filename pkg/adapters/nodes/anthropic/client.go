// Package anthropic executes llm nodes against the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
)

// Client executes llm nodes by calling Claude. The node config selects the
// model, max_tokens, and an optional system prompt; the prompt itself comes
// from the node's inputs.
type Client struct {
	client sdk.Client
	logger *zap.Logger
}

// NewClient creates an Anthropic node executor.
func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &Client{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}, nil
}

// Execute sends the node's prompt to the configured model.
func (c *Client) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	prompt := buildPrompt(node, inputs)
	if prompt == "" {
		return nil, fmt.Errorf("llm node %s: no prompt in config or inputs", node.ID)
	}

	model := defaultModel
	if m, ok := node.Config["model"].(string); ok && m != "" {
		model = m
	}
	maxTokens := int64(defaultMaxTokens)
	if v, ok := node.Config["max_tokens"].(float64); ok && v > 0 {
		maxTokens = int64(v)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system, ok := node.Config["system"].(string); ok && system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm node %s: messages API call failed: %w", node.ID, err)
	}
	duration := time.Since(start)

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	c.logger.Debug("llm call completed",
		zap.String("node_id", node.ID),
		zap.String("model", model),
		zap.Int64("input_tokens", message.Usage.InputTokens),
		zap.Int64("output_tokens", message.Usage.OutputTokens),
		zap.Duration("duration", duration))

	return &domain.NodeOutput{
		Data: map[string]interface{}{
			"response": text.String(),
			"model":    model,
		},
		ExecutionTime: duration,
		Metadata: map[string]interface{}{
			"input_tokens":  message.Usage.InputTokens,
			"output_tokens": message.Usage.OutputTokens,
			"stop_reason":   string(message.StopReason),
		},
	}, nil
}

// buildPrompt assembles the user prompt from the config template or the
// node's inputs. A config prompt may interpolate {{key}} placeholders from
// the merged inputs.
func buildPrompt(node domain.Node, inputs map[string]interface{}) string {
	merged := make(map[string]interface{}, len(inputs))
	for key, value := range inputs {
		if nested, ok := value.(map[string]interface{}); ok {
			for k, v := range nested {
				merged[k] = v
			}
			continue
		}
		merged[key] = value
	}

	if template, ok := node.Config["prompt"].(string); ok && template != "" {
		prompt := template
		for k, v := range merged {
			prompt = strings.ReplaceAll(prompt, "{{"+k+"}}", fmt.Sprintf("%v", v))
		}
		return prompt
	}

	if p, ok := merged["prompt"].(string); ok {
		return p
	}
	if p, ok := merged["response"].(string); ok {
		return p
	}

	var parts []string
	for _, v := range merged {
		if s, ok := v.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
