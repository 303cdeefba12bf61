// Package platform is a thin client for the BaaS REST surfaces the LMS consumes:
// the auth service, storage buckets and database RPC functions.
package platform

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

const maxErrorBody = 64 << 10

type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client
}

func New(baseURL string, anonKey string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse platform URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("platform URL must be http or https: %q", baseURL)
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, fmt.Errorf("platform anon key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{baseURL: parsed, anonKey: anonKey, httpClient: httpClient}, nil
}

// ProjectRef is the first host label, used to namespace persisted sessions.
func (c *Client) ProjectRef() string {
	host := c.baseURL.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
	headers     map[string]string
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path, r.query), r.body)
	if err != nil {
		return fmt.Errorf("build platform request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method string, path string, query url.Values, token string, in any, out any) error {
	r := request{method: method, path: path, query: query, token: token}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
		r.body = bytes.NewReader(payload)
		r.contentType = "application/json"
	}
	return c.do(ctx, r, out)
}
