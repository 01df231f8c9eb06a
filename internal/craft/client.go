package craft

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultBaseURL is the Craft Connect API base URL.
	DefaultBaseURL = "https://connect.craft.do/api/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second
)

// Client is an HTTP client for a single Craft collection.
type Client struct {
	httpClient   *http.Client
	token        string
	baseURL      string
	collectionID string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the API token for authenticated requests.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
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

// NewClient creates a client bound to one collection.
func NewClient(collectionID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		baseURL:      DefaultBaseURL,
		collectionID: collectionID,
	}

	if token := os.Getenv("CRAFT_TOKEN"); token != "" {
		c.token = token
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// errorBody is the JSON error envelope returned by the API.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do executes a request and decodes the response into out (if non-nil).
// Error responses are turned into *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "api_error"}
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil && eb.Error.Message != "" {
			apiErr.Code = eb.Error.Code
			apiErr.Message = eb.Error.Message
		} else {
			apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %s", ErrAuthError, apiErr.Message)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// GetSchema fetches the collection schema. A collection without schema
// enforcement returns (nil, nil), not an error.
func (c *Client) GetSchema(ctx context.Context) (*Schema, error) {
	var schema Schema
	err := c.do(ctx, http.MethodGet, "/collections/"+c.collectionID+"/schema", nil, &schema)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(schema.Fields) == 0 {
		return nil, nil
	}
	return &schema, nil
}

// ListItems fetches all items in the collection with their properties.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var resp struct {
		Items []Item `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections/"+c.collectionID+"/items", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// createRequest is the body of an item create call.
type createRequest struct {
	Title      string         `json:"title"`
	TitleField string         `json:"titleField,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Blocks     []string       `json:"blocks,omitempty"`
	Options    WriteOptions   `json:"options"`
}

// CreateItem creates a new item and returns its id. Blocks, if any, become
// the document body.
func (c *Client) CreateItem(ctx context.Context, title string, properties map[string]any, blocks []string, titleField string, opts WriteOptions) (string, error) {
	req := createRequest{
		Title:      title,
		TitleField: titleField,
		Properties: properties,
		Blocks:     blocks,
		Options:    opts,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collectionID+"/items", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: create returned no item id", ErrInvalidResponse)
	}
	return resp.ID, nil
}

// updateRequest is the body of an item update call.
type updateRequest struct {
	Title      string         `json:"title"`
	TitleField string         `json:"titleField,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Options    WriteOptions   `json:"options"`
}

// UpdateItem replaces the title and listed properties of an existing item.
// Properties not present in the map are left untouched.
func (c *Client) UpdateItem(ctx context.Context, id, title string, properties map[string]any, titleField string, opts WriteOptions) error {
	req := updateRequest{
		Title:      title,
		TitleField: titleField,
		Properties: properties,
		Options:    opts,
	}
	err := c.do(ctx, http.MethodPut, "/collections/"+c.collectionID+"/items/"+id, req, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.ItemID = id
		}
	}
	return err
}

// AppendBlocks appends body blocks to an existing item.
func (c *Client) AppendBlocks(ctx context.Context, id string, blocks []string) error {
	req := struct {
		Blocks []string `json:"blocks"`
	}{Blocks: blocks}
	return c.do(ctx, http.MethodPost, "/collections/"+c.collectionID+"/items/"+id+"/blocks", req, nil)
}

// DeleteItems deletes the given items from the collection.
func (c *Client) DeleteItems(ctx context.Context, ids []string) error {
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, http.MethodDelete, "/collections/"+c.collectionID+"/items", req, nil)
}

// ResolveDailyNote resolves an ISO date (YYYY-MM-DD) to the block id of the
// corresponding daily note.
func (c *Client) ResolveDailyNote(ctx context.Context, date string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/dailynotes/"+date, nil, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: no daily note id for %s", ErrInvalidResponse, date)
	}
	return resp.ID, nil
}
