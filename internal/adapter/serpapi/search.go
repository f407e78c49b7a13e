package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/pkg/utils"
)

type organicResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// Client queries Google organic results through SerpAPI.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://serpapi.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search returns up to limit candidate sites. Any failure yields an empty
// result together with the error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]entity.CandidateSite, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("serpapi: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Error != "" {
		return nil, fmt.Errorf("serpapi: status %d: %s", resp.StatusCode, body.Error)
	}

	sites := make([]entity.CandidateSite, 0, limit)
	for _, r := range body.OrganicResults {
		if len(sites) == limit {
			break
		}
		if !utils.IsAbsoluteHTTP(r.Link) {
			continue
		}
		sites = append(sites, entity.CandidateSite{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	c.logger.Info("search finished", zap.String("query", query), zap.Int("sites", len(sites)))
	return sites, nil
}
