package search

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

	"github.com/haasonsaas/nqbench/pkg/models"
)

// DefaultHTTPTimeout bounds requests to a remote search server.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPSearcher queries an Anserini-style REST search server:
//
//	GET <base>/api/v1.0/indexes/<index>/search?query=...&hits=k
type HTTPSearcher struct {
	client  *http.Client
	baseURL string
	index   string
}

type httpSearchResponse struct {
	Candidates []struct {
		DocID string  `json:"docid"`
		Score float64 `json:"score"`
	} `json:"candidates"`
}

// NewHTTPSearcher creates a searcher for index on the server at baseURL.
func NewHTTPSearcher(baseURL, index string, timeout time.Duration) (*HTTPSearcher, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid search server url %q: %w", baseURL, err)
	}
	if strings.TrimSpace(index) == "" {
		return nil, fmt.Errorf("index name is required for http search")
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPSearcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		index:   index,
	}, nil
}

// Search issues one request and returns the candidates in server order.
func (s *HTTPSearcher) Search(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("hits", strconv.Itoa(k))
	endpoint := fmt.Sprintf("%s/api/v1.0/indexes/%s/search?%s", s.baseURL, url.PathEscape(s.index), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload httpSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(payload.Candidates))
	for _, c := range payload.Candidates {
		if len(hits) == k {
			break
		}
		hits = append(hits, models.SearchHit{DocID: c.DocID, Score: c.Score, Rank: len(hits) + 1})
	}
	return hits, nil
}

// Close releases idle connections.
func (s *HTTPSearcher) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
