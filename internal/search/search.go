// Package search queries Google Custom Search for scholarship listings.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// providerMax is Google's per-request result ceiling.
const providerMax = 10

// Result is one search hit in provider relevance order.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client issues queries against one configured custom search engine.
type Client struct {
	svc      *customsearch.Service
	engineID string
	logger   *zap.Logger
}

// NewClient builds a Client authenticated with an API key.
func NewClient(ctx context.Context, apiKey, engineID string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("search api key is required")
	}
	if engineID == "" {
		return nil, errors.New("search engine id is required")
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	return &Client{svc: svc, engineID: engineID, logger: logger}, nil
}

// Search runs one query and returns up to max results in provider order.
// max is clamped to the provider's per-request ceiling.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Result, error) {
	max = clamp(max)
	c.logger.Info("searching", zap.String("query", query), zap.Int("max_results", max))

	resp, err := c.svc.Cse.List().
		Q(query).
		Cx(c.engineID).
		Num(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 403 {
			c.logger.Error("search quota exceeded or access denied",
				zap.Int("status", gerr.Code),
				zap.String("hint", "the free tier allows 100 queries/day"),
			)
		}
		return nil, fmt.Errorf("custom search: %w", err)
	}

	results := fromItems(resp.Items)
	c.logger.Info("search finished", zap.Int("results", len(results)))
	return results, nil
}

func clamp(max int) int {
	if max < 1 {
		return 1
	}
	if max > providerMax {
		return providerMax
	}
	return max
}

func fromItems(items []*customsearch.Result) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results
}
