// Package qdrant implements search.Searcher over a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/embeddings"
	"github.com/parleyhq/parley/internal/search"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g. "https://example.qdrant.io:6334").
	URL string

	// CollectionName is the collection holding document chunks.
	CollectionName string

	// APIKey is an optional API key for authentication.
	APIKey string
}

// Client implements search.Searcher for Qdrant. Queries are embedded first,
// then matched against the collection with an organization filter.
type Client struct {
	client     *qdrant.Client
	collection string
	embedder   *embeddings.Client

	initOnce sync.Once
	initErr  error
}

// New creates a Qdrant-backed searcher.
func New(cfg Config, embedder *embeddings.Client) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsed := cfg.URL
	if !strings.HasPrefix(parsed, "http://") && !strings.HasPrefix(parsed, "https://") {
		parsed = "https://" + parsed
	}
	u, err := url.Parse(parsed)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	qc, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Client{
		client:     qc,
		collection: cfg.CollectionName,
		embedder:   embedder,
	}, nil
}

// ensureReady verifies the collection exists on first use.
func (c *Client) ensureReady(ctx context.Context) error {
	c.initOnce.Do(func() {
		exists, err := c.client.CollectionExists(ctx, c.collection)
		if err != nil {
			c.initErr = fmt.Errorf("check collection %q: %w", c.collection, err)
			return
		}
		if !exists {
			c.initErr = fmt.Errorf("qdrant collection %q does not exist", c.collection)
		}
	})
	return c.initErr
}

// Search implements search.Searcher.
func (c *Client) Search(ctx context.Context, org domain.OrganizationID, query string, topK int) ([]domain.DocumentHit, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	vector, err := c.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := uint64(topK)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   "organization_id",
							Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: string(org)}},
						},
					},
				},
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	hits := make([]domain.DocumentHit, 0, len(points))
	for _, point := range points {
		hit := domain.DocumentHit{
			Similarity: float64(point.Score),
			Metadata:   make(map[string]any),
		}

		if point.Id != nil {
			if id := point.Id.GetUuid(); id != "" {
				hit.ID = domain.DocumentID(id)
			} else if num := point.Id.GetNum(); num != 0 {
				hit.ID = domain.DocumentID(strconv.FormatUint(num, 10))
			}
		}

		for k, v := range point.Payload {
			switch k {
			case "content":
				if s := v.GetStringValue(); s != "" {
					hit.Content = s
				}
			case "document_id":
				if s := v.GetStringValue(); s != "" {
					hit.ID = domain.DocumentID(s)
				}
			default:
				hit.Metadata[k] = extractValue(v)
			}
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

// Compile-time check that Client implements Searcher.
var _ search.Searcher = (*Client)(nil)
