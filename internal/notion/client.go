// Package notion is a small typed client for the Notion REST API covering the
// calls the service needs: database queries, page create/update/retrieve and
// block listing. Every response is decoded into typed structs and validated
// before it is handed to callers.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion is the Notion-Version header sent with every request.
	DefaultVersion = "2022-06-28"

	pageSize = 100
	maxPages = 50
)

// ErrSchema indicates a response that does not match the expected shape.
var ErrSchema = errors.New("notion: unexpected response shape")

// APIError is returned for non-2xx replies.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: status %d", e.Status)
	}
	return fmt.Sprintf("notion: status %d %s: %s", e.Status, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps interactions with the Notion API.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, token: opts.Token, version: version, httpClient: httpClient}
}

type queryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

type pageList struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type blockList struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase returns every page of databaseID matching filter.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *Filter) ([]Page, error) {
	if databaseID == "" {
		return nil, errors.New("notion: database id required")
	}
	var pages []Page
	cursor := ""
	for i := 0; i < maxPages; i++ {
		var list pageList
		req := queryRequest{Filter: filter, PageSize: pageSize, StartCursor: cursor}
		if err := c.do(ctx, http.MethodPost, "/v1/databases/"+url.PathEscape(databaseID)+"/query", req, &list); err != nil {
			return nil, err
		}
		if list.Object != "list" {
			return nil, fmt.Errorf("%w: query returned object %q", ErrSchema, list.Object)
		}
		for _, p := range list.Results {
			if err := p.validate(); err != nil {
				return nil, err
			}
		}
		pages = append(pages, list.Results...)
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			return pages, nil
		}
		cursor = *list.NextCursor
	}
	return nil, fmt.Errorf("notion: query exceeded %d result pages", maxPages)
}

type createPageRequest struct {
	Parent     parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

// CreatePage adds a page to databaseID.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props map[string]PropertyValue) (*Page, error) {
	var page Page
	body := createPageRequest{Parent: parent{DatabaseID: databaseID}, Properties: props}
	if err := c.do(ctx, http.MethodPost, "/v1/pages", body, &page); err != nil {
		return nil, err
	}
	if err := page.validate(); err != nil {
		return nil, err
	}
	return &page, nil
}

type updatePageRequest struct {
	Properties map[string]PropertyValue `json:"properties"`
}

// UpdatePage overwrites the given properties of pageID.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props map[string]PropertyValue) (*Page, error) {
	if pageID == "" {
		return nil, errors.New("notion: page id required")
	}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(pageID), updatePageRequest{Properties: props}, &page); err != nil {
		return nil, err
	}
	if err := page.validate(); err != nil {
		return nil, err
	}
	return &page, nil
}

// RetrievePage fetches a single page with its properties.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, err
	}
	if err := page.validate(); err != nil {
		return nil, err
	}
	return &page, nil
}

// BlockChildren lists all direct children of blockID.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for i := 0; i < maxPages; i++ {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(pageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		var list blockList
		if err := c.do(ctx, http.MethodGet, "/v1/blocks/"+url.PathEscape(blockID)+"/children?"+q.Encode(), nil, &list); err != nil {
			return nil, err
		}
		if list.Object != "list" {
			return nil, fmt.Errorf("%w: block children returned object %q", ErrSchema, list.Object)
		}
		for _, b := range list.Results {
			if b.ID == "" || b.Type == "" {
				return nil, fmt.Errorf("%w: block without id or type", ErrSchema)
			}
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			return blocks, nil
		}
		cursor = *list.NextCursor
	}
	return nil, fmt.Errorf("notion: block listing exceeded %d result pages", maxPages)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("notion: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion: %s %s: %w", method, strings.SplitN(path, "?", 2)[0], err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
