package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

const defaultToolTimeout = 30 * time.Second

// Tool executes tool nodes by POSTing the node's inputs to the webhook
// configured under "url" and returning the JSON response body.
type Tool struct {
	client *http.Client
	logger *zap.Logger
}

// NewTool creates a tool executor with the given request timeout.
func NewTool(timeout time.Duration, logger *zap.Logger) *Tool {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	return &Tool{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Execute invokes the configured webhook with the node's inputs.
func (t *Tool) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	url, ok := node.Config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("tool node %s: missing url in config", node.ID)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"execution_id": nodeCtx.ExecutionID,
		"node_id":      node.ID,
		"inputs":       flatten(inputs),
	})
	if err != nil {
		return nil, fmt.Errorf("tool node %s: failed to marshal payload: %w", node.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tool node %s: failed to build request: %w", node.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool node %s: request failed: %w", node.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tool node %s: failed to read response: %w", node.ID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool node %s: webhook returned %d", node.ID, resp.StatusCode)
	}

	data := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			// Non-JSON responses are passed through raw.
			data = map[string]interface{}{"response": string(body)}
		}
	}

	t.logger.Debug("tool invoked",
		zap.String("node_id", node.ID),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	return &domain.NodeOutput{
		Data:          data,
		ExecutionTime: time.Since(start),
	}, nil
}
