// Package procstudio provides a minimal client for the ProcStudio REST API.
package procstudio

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

	"github.com/tidwall/gjson"
)

// ErrMissingToken is returned when a call is attempted without a bearer token.
var ErrMissingToken = errors.New("procstudio: bearer token missing")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("procstudio api status %d", e.StatusCode)
	}
	return fmt.Sprintf("procstudio api status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin HTTP client for the ProcStudio API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a new client. If httpClient is nil, a default with 15s timeout is used.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// ListTeams returns the teams visible to the token's user.
func (c *Client) ListTeams(ctx context.Context, token string) ([]Team, error) {
	body, err := c.do(ctx, http.MethodGet, token, nil, "teams")
	if err != nil {
		return nil, err
	}
	items := extractItems(body, "teams")
	out := make([]Team, 0, len(items))
	for _, it := range items {
		out = append(out, teamFrom(it))
	}
	return out, nil
}

// GetTeam returns a single team.
func (c *Client) GetTeam(ctx context.Context, token, id string) (Team, error) {
	body, err := c.do(ctx, http.MethodGet, token, nil, "teams", id)
	if err != nil {
		return Team{}, err
	}
	return teamFrom(extractObject(body, "team")), nil
}

// UpdateTeam applies u to team id and returns the updated record.
func (c *Client) UpdateTeam(ctx context.Context, token, id string, u TeamUpdate) (Team, error) {
	payload, err := json.Marshal(map[string]TeamUpdate{"team": u})
	if err != nil {
		return Team{}, fmt.Errorf("encode team update: %w", err)
	}
	body, err := c.do(ctx, http.MethodPut, token, payload, "teams", id)
	if err != nil {
		return Team{}, err
	}
	return teamFrom(extractObject(body, "team")), nil
}

// ListMembers returns the members of a team.
func (c *Client) ListMembers(ctx context.Context, token, teamID string) ([]Member, error) {
	body, err := c.do(ctx, http.MethodGet, token, nil, "teams", teamID, "members")
	if err != nil {
		return nil, err
	}
	items := extractItems(body, "members")
	out := make([]Member, 0, len(items))
	for _, it := range items {
		out = append(out, memberFrom(it))
	}
	return out, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (Member, error) {
	body, err := c.do(ctx, http.MethodGet, token, nil, "me")
	if err != nil {
		return Member{}, err
	}
	return memberFrom(extractObject(body, "user")), nil
}

// DashboardStats returns the dashboard counters as an opaque object.
func (c *Client) DashboardStats(ctx context.Context, token string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, token, nil, "dashboard", "stats")
	if err != nil {
		return nil, err
	}
	obj := extractObject(body, "stats")
	m, ok := obj.Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode dashboard stats: unexpected payload %q", truncate(obj.Raw, 64))
	}
	return m, nil
}

func (c *Client) do(ctx context.Context, method, token string, payload []byte, segments ...string) (gjson.Result, error) {
	if token == "" {
		return gjson.Result{}, ErrMissingToken
	}
	reqURL, err := c.buildURL(segments...)
	if err != nil {
		return gjson.Result{}, err
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &APIError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 256)}
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("decode response: invalid json from %s", reqURL)
	}
	return gjson.ParseBytes(raw), nil
}

// buildURL joins escaped path segments onto the base URL.
func (c *Client) buildURL(segments ...string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", fmt.Errorf("invalid path segment %q", s)
		}
		escaped[i] = url.PathEscape(s)
	}
	return u.JoinPath(escaped...).String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
