// Package supabase talks to externally hosted app projects over their
// PostgREST endpoint.  Calls are single-shot: a failed request is reported
// to the caller and never retried here.
package supabase

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

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// maxErrorBody caps how much of a failed response body is kept for diagnosis.
const maxErrorBody = 4 << 10

// RemoteError is returned for any non-2xx response.  Body holds the
// response text verbatim (truncated to 4 KiB).
type RemoteError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client issues authenticated REST calls against remote projects.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

func restURL(p model.ProjectConfig, table string) string {
	return strings.TrimRight(p.RemoteBaseURL, "/") + "/rest/v1/" + url.PathEscape(table)
}

// FetchUsers performs GET {base}/rest/v1/{table}?select=*&limit={limit}.
func (c *Client) FetchUsers(ctx context.Context, p model.ProjectConfig, key string, limit int) ([]model.RawUserRow, error) {
	u := restURL(p, p.Table()) + "?select=*&limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	authorize(req, key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var rows []model.RawUserRow
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", u, err)
	}
	return rows, nil
}

// PatchUser performs PATCH {base}/rest/v1/{table}?id=eq.{id} asking for no
// response body.
func (c *Client) PatchUser(ctx context.Context, p model.ProjectConfig, key, table, id string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	u := restURL(p, table) + "?id=eq." + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	authorize(req, key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("PATCH %s: %w", u, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func authorize(req *http.Request, key string) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RemoteError{
		Method: resp.Request.Method,
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Body:   string(b),
	}
}
