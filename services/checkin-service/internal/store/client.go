package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Client talks to the remote relational store over its HTTP query interface
// (PostgREST dialect, as exposed by Supabase). Every call is a single round
// trip; there is no retry logic here, transient failures propagate unchanged.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Querier = (*Client)(nil)

// New creates a store client for the given endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewFromConfig creates a store client from viper configuration.
func NewFromConfig() *Client {
	baseURL := viper.GetString("store.url")
	if baseURL == "" {
		baseURL = "http://localhost:8080/rest/v1"
	}
	return New(baseURL, viper.GetString("store.api_key"))
}

// Select implements Querier.Select.
func (c *Client) Select(ctx context.Context, table string, dest any, q Query) (int64, error) {
	params := url.Values{}
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ",")
	}
	params.Set("select", cols)
	for _, f := range q.Filters {
		key, value, err := f.encode()
		if err != nil {
			return -1, err
		}
		params.Add(key, value)
	}
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			parts[i] = o.encode()
		}
		params.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var prefer string
	if q.Count {
		prefer = "count=exact"
	}
	header, err := c.do(ctx, http.MethodGet, table, params, prefer, nil, dest)
	if err != nil {
		return -1, err
	}
	if q.Count {
		return parseCount(header.Get("Content-Range"))
	}
	return -1, nil
}

// Insert implements Querier.Insert.
func (c *Client) Insert(ctx context.Context, table string, rows any, dest any) error {
	_, err := c.do(ctx, http.MethodPost, table, nil, "return=representation", rows, dest)
	return err
}

// Update implements Querier.Update.
func (c *Client) Update(ctx context.Context, table string, patch any, dest any, filters ...Filter) error {
	params, err := encodeFilters(filters)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPatch, table, params, "return=representation", patch, dest)
	return err
}

// Upsert implements Querier.Upsert.
func (c *Client) Upsert(ctx context.Context, table string, row any, conflict []string, dest any) error {
	params := url.Values{}
	if len(conflict) > 0 {
		params.Set("on_conflict", strings.Join(conflict, ","))
	}
	prefer := "resolution=ignore-duplicates,return=representation"
	_, err := c.do(ctx, http.MethodPost, table, params, prefer, row, dest)
	return err
}

// Delete implements Querier.Delete.
func (c *Client) Delete(ctx context.Context, table string, filters ...Filter) error {
	params, err := encodeFilters(filters)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, table, params, "", nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, prefer string, body, dest any) (http.Header, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, table)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, string(raw))
	}

	if dest != nil {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		// A suppressed representation comes back as an empty body.
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, dest); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
		}
	}
	return resp.Header, nil
}

func encodeFilters(filters []Filter) (url.Values, error) {
	params := url.Values{}
	for _, f := range filters {
		key, value, err := f.encode()
		if err != nil {
			return nil, err
		}
		params.Add(key, value)
	}
	return params, nil
}

// parseCount extracts the total from a Content-Range header ("0-24/57").
func parseCount(contentRange string) (int64, error) {
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok || total == "*" {
		return 0, nil
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range %q: %w", contentRange, err)
	}
	return n, nil
}
