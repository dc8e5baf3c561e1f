// Package search queries the Google Programmable Search API for public
// context about a merchant name.
package search

import (
	"context"
	"sync/atomic"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

var (
	APICalls  atomic.Int64
	APIErrors atomic.Int64
)

const (
	defaultResultCount = 5
	defaultTimeout     = 8 * time.Second
)

// Result is one search hit, reduced to the fields the resolver scores.
type Result struct {
	Title       string
	Snippet     string
	Link        string
	DisplayLink string
}

type Client struct {
	svc      *customsearch.Service
	engineID string
	count    int64
	timeout  time.Duration
}

func New(ctx context.Context, apiKey, engineID string, resultCount int, timeout time.Duration) (*Client, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if resultCount <= 0 {
		resultCount = defaultResultCount
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		svc:      svc,
		engineID: engineID,
		count:    int64(resultCount),
		timeout:  timeout,
	}, nil
}

// Search runs one time-bounded query and returns at most the configured
// number of results.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	APICalls.Add(1)
	resp, err := c.svc.Cse.List().Q(query).Cx(c.engineID).Num(c.count).Context(ctx).Do()
	if err != nil {
		APIErrors.Add(1)
		return nil, err
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:       item.Title,
			Snippet:     item.Snippet,
			Link:        item.Link,
			DisplayLink: item.DisplayLink,
		})
	}
	return results, nil
}
