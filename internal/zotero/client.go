package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is the Zotero-API-Version header value.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit keeps the client well under Zotero's backoff threshold.
	RateLimit = 5.0

	// DefaultListLimit is the default page size for item listings.
	DefaultListLimit = 50

	// CollectionPageLimit is the page size for collection listings.
	CollectionPageLimit = 100
)

// Client is a rate-limited HTTP client for the Zotero Web API, scoped to
// one user or group library.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	prefix     string // "/users/123" or "/groups/456"
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithGroupLibrary scopes the client to a group library instead of a
// user library.
func WithGroupLibrary(groupID string) ClientOption {
	return func(c *Client) {
		c.prefix = "/groups/" + groupID
	}
}

// NewClient creates a Web API client for the given user library.
func NewClient(userID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		prefix:     "/users/" + userID,
	}

	if key := os.Getenv("ZOTERO_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get executes a GET request against the library and decodes the JSON
// response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + c.prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", APIVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "api_error",
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// itemQuery builds the common query parameters for item listings.
func itemQuery(limit int) url.Values {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "dateModified")
	q.Set("direction", "desc")
	return q
}

// ListRecent returns the most recently modified top-level items, newest
// first. A non-empty collection key restricts results to that collection.
func (c *Client) ListRecent(ctx context.Context, limit int, collection string) ([]Item, error) {
	path := "/items/top"
	if collection != "" {
		path = "/collections/" + collection + "/items/top"
	}

	var items []Item
	if err := c.get(ctx, path, itemQuery(limit), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Search returns top-level items matching the query string, using the
// title/creator/year quick-search mode.
func (c *Client) Search(ctx context.Context, query string, limit int, collection string) ([]Item, error) {
	path := "/items/top"
	if collection != "" {
		path = "/collections/" + collection + "/items/top"
	}

	q := itemQuery(limit)
	q.Set("q", query)
	q.Set("qmode", "titleCreatorYear")

	var items []Item
	if err := c.get(ctx, path, q, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListCollections returns all collections in the library.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(CollectionPageLimit))

	var cols []Collection
	if err := c.get(ctx, "/collections", q, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// ChildNotes returns the HTML bodies of an item's child notes.
func (c *Client) ChildNotes(ctx context.Context, itemKey string) ([]string, error) {
	q := url.Values{}
	q.Set("itemType", "note")

	var children []Item
	if err := c.get(ctx, "/items/"+itemKey+"/children", q, &children); err != nil {
		return nil, err
	}

	var notes []string
	for _, child := range children {
		if child.Data.Note != "" {
			notes = append(notes, child.Data.Note)
		}
	}
	return notes, nil
}
