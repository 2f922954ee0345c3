package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/pkg/domain"
)

const defaultRetrievalLimit = 5

// Retrieval executes retrieval nodes against document collections stored
// in Redis. A collection is a list of JSON documents under
// flowforge:collections:<name>; the query term from the node's inputs is
// matched against each document's text.
type Retrieval struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRetrieval creates a Redis-backed retrieval executor.
func NewRetrieval(client *redis.Client, logger *zap.Logger) *Retrieval {
	return &Retrieval{
		client: client,
		logger: logger,
	}
}

// Execute looks up documents matching the query in the configured collection.
func (r *Retrieval) Execute(ctx context.Context, node domain.Node, inputs map[string]interface{}, nodeCtx domain.NodeContext) (*domain.NodeOutput, error) {
	collection, ok := node.Config["collection"].(string)
	if !ok || collection == "" {
		return nil, fmt.Errorf("retrieval node %s: missing collection in config", node.ID)
	}

	limit := defaultRetrievalLimit
	if v, ok := node.Config["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	query := extractQuery(inputs)

	start := time.Now()
	entries, err := r.client.LRange(ctx, getCollectionKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("retrieval node %s: failed to read collection %s: %w", node.ID, collection, err)
	}

	documents := make([]map[string]interface{}, 0, limit)
	for _, entry := range entries {
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(entry), &doc); err != nil {
			r.logger.Warn("skipping malformed document",
				zap.String("collection", collection),
				zap.Error(err))
			continue
		}
		if query == "" || documentMatches(doc, query) {
			documents = append(documents, doc)
			if len(documents) >= limit {
				break
			}
		}
	}

	r.logger.Debug("retrieval completed",
		zap.String("node_id", node.ID),
		zap.String("collection", collection),
		zap.Int("matches", len(documents)),
		zap.Duration("duration", time.Since(start)))

	return &domain.NodeOutput{
		Data: map[string]interface{}{
			"documents": documents,
			"query":     query,
		},
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"collection":    collection,
			"scanned_count": len(entries),
		},
	}, nil
}

// extractQuery pulls the query term out of the node's inputs, preferring
// an explicit "query" key, then "prompt", then any string value.
func extractQuery(inputs map[string]interface{}) string {
	merged := flatten(inputs)
	if q, ok := merged["query"].(string); ok {
		return q
	}
	if q, ok := merged["prompt"].(string); ok {
		return q
	}
	for _, v := range merged {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// documentMatches reports whether any query term appears in the document's
// text or title fields.
func documentMatches(doc map[string]interface{}, query string) bool {
	var haystack strings.Builder
	for _, field := range []string{"text", "title", "content"} {
		if s, ok := doc[field].(string); ok {
			haystack.WriteString(strings.ToLower(s))
			haystack.WriteByte(' ')
		}
	}
	corpus := haystack.String()
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(corpus, term) {
			return true
		}
	}
	return false
}

// getCollectionKey returns the Redis key for a document collection.
func getCollectionKey(collection string) string {
	return fmt.Sprintf("flowforge:collections:%s", collection)
}
