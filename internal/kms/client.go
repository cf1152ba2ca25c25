// Package kms is a client for the NASA Keyword Management System, used to
// resolve science-keyword/platform/instrument terms to a stable UUID and
// definition. Lookups are cached process-wide since the same handful of
// terms (MODIS, Terra, precipitation, ...) recur across thousands of
// concepts.
package kms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nasa/earthdata-mcp/internal/domain"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

type cacheKey struct {
	term   string
	scheme string
}

// Client looks up KMS terms over HTTP, caching both hits and misses in a
// bounded LRU so a burst of concepts referencing the same instrument only
// pays the network round trip once.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	cache      *lru.Cache[cacheKey, *domain.KMSTerm]
}

func NewClient(log *logger.Logger, baseURL string, cacheSize int) (*Client, error) {
	if baseURL == "" {
		baseURL = "https://cmr.earthdata.nasa.gov/kms"
	}
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	cache, err := lru.New[cacheKey, *domain.KMSTerm](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create kms cache: %w", err)
	}
	return &Client{
		log:        log.With("client", "KMSClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
	}, nil
}

// LookupTerm resolves term/scheme to a KMSTerm, or nil if no match was
// found. Network or decode errors are logged and treated as a miss rather
// than propagated, matching the Python client's tolerance for a flaky KMS
// API: a missing enrichment should never fail concept processing.
func (c *Client) LookupTerm(ctx context.Context, term, scheme string) *domain.KMSTerm {
	key := cacheKey{term: term, scheme: scheme}
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	result, err := c.lookupTermUncached(ctx, term, scheme)
	if err != nil {
		c.log.Debug("kms lookup failed", "term", term, "scheme", scheme, "error", err)
		return nil
	}

	c.cache.Add(key, result)
	return result
}

// LookupDefinition resolves term/scheme straight to its definition string,
// or "" if the term isn't found or has no definition. Satisfies
// embedding.TermLookup for the KMS-enrichment decorator.
func (c *Client) LookupDefinition(ctx context.Context, term, scheme string) string {
	t := c.LookupTerm(ctx, term, scheme)
	if t == nil || t.Definition == nil {
		return ""
	}
	return *t.Definition
}

// ClearCache drops all cached lookups. Exposed for tests that need to
// observe network behavior across repeated calls.
func (c *Client) ClearCache() {
	c.cache.Purge()
}

func (c *Client) lookupTermUncached(ctx context.Context, term, scheme string) (*domain.KMSTerm, error) {
	searchURL := fmt.Sprintf("%s/concepts/concept_scheme/%s/pattern/%s",
		c.baseURL, url.PathEscape(scheme), url.PathEscape(term))

	var searchResp struct {
		Concepts []struct {
			PrefLabel string `json:"prefLabel"`
			UUID      string `json:"uuid"`
		} `json:"concepts"`
	}
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return nil, err
	}

	uuid := extractUUID(searchResp.Concepts, term)
	if uuid == "" {
		return nil, nil
	}

	definition, err := c.fetchDefinition(ctx, uuid)
	if err != nil {
		return nil, err
	}

	return &domain.KMSTerm{
		Term:       term,
		Scheme:     scheme,
		UUID:       uuid,
		Definition: definition,
	}, nil
}

func extractUUID(concepts []struct {
	PrefLabel string `json:"prefLabel"`
	UUID      string `json:"uuid"`
}, term string) string {
	upper := strings.ToUpper(term)
	for _, c := range concepts {
		if strings.ToUpper(c.PrefLabel) == upper && c.UUID != "" {
			return c.UUID
		}
	}
	if len(concepts) > 0 {
		return concepts[0].UUID
	}
	return ""
}

func (c *Client) fetchDefinition(ctx context.Context, uuid string) (*string, error) {
	conceptURL := fmt.Sprintf("%s/concept/%s", c.baseURL, url.PathEscape(uuid))

	var conceptResp struct {
		Definition string `json:"definition"`
	}
	if err := c.getJSON(ctx, conceptURL, &conceptResp); err != nil {
		return nil, err
	}
	if conceptResp.Definition == "" {
		return nil, nil
	}
	return &conceptResp.Definition, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?format=json", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("kms request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// EmbeddingText renders the canonical "term: definition" (or bare term)
// form used when a KMS term is embedded for the first time. Kept
// independent of internal/embedding's own enrichment text rewriting, since
// the two call sites serve different purposes (storing the KMS term's own
// embedding vs. enriching a concept's embedding text).
func EmbeddingText(t *domain.KMSTerm) string {
	if t == nil {
		return ""
	}
	if t.Definition != nil && *t.Definition != "" {
		return fmt.Sprintf("%s: %s", t.Term, *t.Definition)
	}
	return t.Term
}
