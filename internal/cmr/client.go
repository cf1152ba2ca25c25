// Package cmr is a thin HTTP client for the NASA Common Metadata Repository
// search API: fetching a single concept's UMM metadata, a collection's
// associations, and paginating bulk searches.
package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nasa/earthdata-mcp/internal/platform/apierr"
	"github.com/nasa/earthdata-mcp/internal/platform/httpx"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

func readAndClose(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	return io.ReadAll(body)
}

var conceptEndpoints = map[string]string{
	"collection": "/search/collections.umm_json",
	"variable":   "/search/variables.umm_json",
	"citation":   "/search/citations.umm_json",
}

// Client is a CMR search API client. It is safe for concurrent use.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://cmr.earthdata.nasa.gov"
	}
	return &Client{
		log:        log.With("client", "CMRClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		maxRetries: 2,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fullURL := c.baseURL + path
		if len(query) > 0 {
			fullURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
				return err
			}
			time.Sleep(httpx.JitterSleep(backoff))
			backoff *= 2
			continue
		}

		raw, readErr := readAndClose(resp.Body)
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &statusError{code: resp.StatusCode, body: string(raw)}
			lastErr = statusErr
			if !httpx.IsRetryableHTTPStatus(resp.StatusCode) || attempt == c.maxRetries {
				return statusErr
			}
			time.Sleep(httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second)))
			backoff *= 2
			continue
		}

		if out == nil {
			return nil
		}
		return json.Unmarshal(raw, out)
	}

	return lastErr
}

// FetchConcept fetches a single concept's full UMM metadata by concept ID
// and revision ID.
func (c *Client) FetchConcept(ctx context.Context, conceptID, revisionID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/search/concepts/%s/%s.umm_json", conceptID, revisionID)

	var raw json.RawMessage
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, apierr.CMR(fmt.Errorf("fetch %s: %w", conceptID, err))
	}
	return raw, nil
}

// FetchAssociations fetches a collection's associations (variables,
// citations). It is best-effort: any failure is logged and an empty map is
// returned rather than propagated, matching the ingest pipeline's tolerance
// for missing association data.
func (c *Client) FetchAssociations(ctx context.Context, conceptID string) map[string][]string {
	query := url.Values{
		"concept_id":           {conceptID},
		"include_has_granules": {"false"},
	}

	var page searchPage
	if err := c.get(ctx, conceptEndpoints["collection"], query, &page); err != nil {
		c.log.Warn("failed to fetch associations", "concept_id", conceptID, "error", err)
		return map[string][]string{}
	}
	if len(page.Items) == 0 {
		return map[string][]string{}
	}

	var meta struct {
		Associations map[string][]string `json:"associations"`
	}
	if err := json.Unmarshal(page.Items[0].Meta, &meta); err != nil {
		c.log.Warn("failed to decode associations", "concept_id", conceptID, "error", err)
		return map[string][]string{}
	}
	if meta.Associations == nil {
		return map[string][]string{}
	}
	return meta.Associations
}

type searchItem struct {
	Meta json.RawMessage `json:"meta"`
	Umm  json.RawMessage `json:"umm"`
}

type searchPage struct {
	Hits  int          `json:"hits"`
	Items []searchItem `json:"items"`
}

// SearchCursor paginates a bulk CMR search.
type SearchCursor struct {
	client       *Client
	path         string
	params       map[string]string
	pageSize     int
	pageNum      int
	totalFetched int
	done         bool
}

// Search returns a cursor over pages of raw search result items (each with
// its "meta" and "umm" objects) for concepts matching searchParams.
func (c *Client) Search(conceptType string, searchParams map[string]string, pageSize int) (*SearchCursor, error) {
	path, ok := conceptEndpoints[conceptType]
	if !ok {
		return nil, apierr.CMR(fmt.Errorf("unsupported concept_type: %s", conceptType))
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	return &SearchCursor{client: c, path: path, params: searchParams, pageSize: pageSize, pageNum: 1}, nil
}

// Next fetches the next page of search results. It returns ok=false once
// the search is exhausted.
func (s *SearchCursor) Next(ctx context.Context) (items []json.RawMessage, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}

	query := url.Values{}
	for k, v := range s.params {
		query.Set(k, v)
	}
	query.Set("page_size", strconv.Itoa(s.pageSize))
	query.Set("page_num", strconv.Itoa(s.pageNum))

	s.client.log.Info("fetching CMR search page", "path", s.path, "page_num", s.pageNum, "page_size", s.pageSize)

	var page searchPage
	if getErr := s.client.get(ctx, s.path, query, &page); getErr != nil {
		return nil, false, apierr.CMR(fmt.Errorf("search request failed: %w", getErr))
	}

	if len(page.Items) == 0 {
		s.done = true
		return nil, false, nil
	}

	raw := make([]json.RawMessage, 0, len(page.Items))
	for _, it := range page.Items {
		itemBytes, marshalErr := json.Marshal(it)
		if marshalErr != nil {
			return nil, false, marshalErr
		}
		raw = append(raw, itemBytes)
	}

	s.totalFetched += len(page.Items)
	s.client.log.Info("fetched CMR search page", "count", len(page.Items), "total", s.totalFetched, "hits", page.Hits)

	if s.totalFetched >= page.Hits {
		s.done = true
	}
	s.pageNum++
	return raw, true, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string        { return fmt.Sprintf("cmr request failed with status %d: %s", e.code, e.body) }
func (e *statusError) HTTPStatusCode() int  { return e.code }
