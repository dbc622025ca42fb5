// Package client talks to a remote operaflow server over its JSON API.
package client

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

	"operaflow/internal/model"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	c := &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TaskQuery mirrors the list filters of GET /api/tasks.
type TaskQuery struct {
	AffaireID *int64
	Status    model.Status
	From      string
	To        string
	Query     string
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	if q.AffaireID != nil {
		v.Set("affaire_id", strconv.FormatInt(*q.AffaireID, 10))
	}
	if q.Status != "" {
		v.Set("statut", string(q.Status))
	}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	return v
}

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	path := "/api/tasks"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &out)
	return out, err
}

func (c *Client) UpdateDates(ctx context.Context, u model.DateUpdate) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/dates", u.TaskID), u, &out)
	return out, err
}

func (c *Client) UpdateProgress(ctx context.Context, u model.ProgressUpdate) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/progress", u.TaskID), u, &out)
	return out, err
}

func (c *Client) BatchUpdateDates(ctx context.Context, items []model.DateUpdate) ([]model.ItemResult, error) {
	var out []model.ItemResult
	body := struct {
		Items []model.DateUpdate `json:"items"`
	}{Items: items}
	if err := c.do(ctx, http.MethodPost, "/api/tasks/dates/batch", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAffaires(ctx context.Context) ([]model.Affaire, error) {
	var out []model.Affaire
	if err := c.do(ctx, http.MethodGet, "/api/affaires", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
