package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ressKim-io/stance-classifier/internal/domain/repository"
	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

const keyPrefix = "stance:result:"

// Scope identifies the model inputs a cached result depends on
type Scope struct {
	Model      string
	Template   string
	Labels     []string
	MultiLabel bool

	// Truncation, MaxTokens and Tokenizer decide how premises were cut
	Truncation string
	MaxTokens  int
	Tokenizer  string
}

type resultCache struct {
	client *goredis.Client
	scope  Scope
	ttl    time.Duration
}

// NewResultCache creates a Redis backed result cache for one scope
func NewResultCache(client *goredis.Client, scope Scope, ttl time.Duration) repository.ResultCache {
	return &resultCache{client: client, scope: scope, ttl: ttl}
}

// Key derives the cache key of a premise within a scope
func Key(scope Scope, text string) string {
	h := sha256.New()
	h.Write([]byte(scope.Model))
	h.Write([]byte{0})
	h.Write([]byte(scope.Template))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(scope.Labels, "\x1f")))
	h.Write([]byte{0})
	if scope.MultiLabel {
		h.Write([]byte{1})
	}
	h.Write([]byte{0})
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00", scope.Truncation, scope.MaxTokens, scope.Tokenizer)
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) GetMany(ctx context.Context, texts []string) (map[string]*service.ClassificationResult, error) {
	found := make(map[string]*service.ClassificationResult)
	if len(texts) == 0 {
		return found, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = Key(c.scope, text)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached results: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var result service.ClassificationResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			continue
		}
		if result.Sequence != texts[i] {
			continue
		}
		found[texts[i]] = &result
	}

	return found, nil
}

func (c *resultCache) SetMany(ctx context.Context, results map[string]*service.ClassificationResult) error {
	if len(results) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for text, result := range results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		pipe.Set(ctx, Key(c.scope, text), payload, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}
