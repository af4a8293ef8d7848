// Package remote implements the HTTP transport for the shared sheet
// endpoint.
//
// The endpoint is a spreadsheet-backed web app speaking a two-verb
// protocol: GET with action=get returns the full row set as a JSON array,
// POST with form fields action=update and data=<JSON array> replaces the
// pushed rows. The transport is stateless and carries no retry logic;
// ordering and gating live in the sync orchestrator.
package remote

import (
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

// ErrNoEndpoint is returned when a transport call is made with no
// endpoint configured.
var ErrNoEndpoint = errors.New("no sync endpoint configured")

// ErrHTMLResponse is returned when the endpoint answers with an HTML page
// instead of JSON. This is the signature of a misconfigured deployment
// URL (a sign-in page or a non-API address), not a server failure, and is
// surfaced distinctly so the CLI can say so.
var ErrHTMLResponse = errors.New("endpoint returned HTML instead of JSON")

// TransportError describes a failed pull or push.
//
// Body carries the raw response text when one was read; the sheet script
// reports its own failures in the body, so losing it would hide the only
// useful diagnostic.
type TransportError struct {
	Op         string // "pull" or "push"
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sync %s failed", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode >= 300) {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if s := bodySnippet(e.Body); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// bodySnippet trims and truncates a response body for error messages.
// The full body stays on TransportError.Body.
func bodySnippet(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}

// Client talks to one sheet endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a transport client for the given endpoint URL.
// The endpoint may be empty; calls will then fail with ErrNoEndpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		// Sheet-backed endpoints are slow on cold starts, so the
		// timeout is generous.
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Pull fetches all rows from the remote sheet.
//
// Rows are normalized before return: a missing lastUpdated defaults to the
// current time so downstream merge comparisons never see an empty stamp
// from the wire.
func (c *Client) Pull(ctx context.Context) ([]Row, error) {
	if c.endpoint == "" {
		return nil, &TransportError{Op: "pull", Err: ErrNoEndpoint}
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &TransportError{Op: "pull", Err: fmt.Errorf("invalid endpoint: %w", err)}
	}
	q := reqURL.Query()
	q.Set("action", "get")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &TransportError{Op: "pull", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "pull", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "pull", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Op: "pull", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if isHTML(resp.Header.Get("Content-Type"), body) {
		return nil, &TransportError{Op: "pull", StatusCode: resp.StatusCode, Body: string(body), Err: ErrHTMLResponse}
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &TransportError{Op: "pull", StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("response is not a JSON row array: %w", err)}
	}

	now := time.Now()
	for i := range rows {
		if strings.TrimSpace(rows[i].LastUpdated) == "" {
			rows[i].LastUpdated = now.Format(time.RFC3339)
		}
	}

	return rows, nil
}

// Push writes the given rows to the remote sheet.
//
// The payload is form-encoded with the row array as a JSON string in the
// data field, which is what the sheet script expects. An empty row set is
// still pushed; the script treats it as a no-op.
func (c *Client) Push(ctx context.Context, rows []Row) error {
	if c.endpoint == "" {
		return &TransportError{Op: "push", Err: ErrNoEndpoint}
	}

	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return &TransportError{Op: "push", Err: fmt.Errorf("failed to encode rows: %w", err)}
	}

	form := url.Values{}
	form.Set("action", "update")
	form.Set("data", string(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "push", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "push", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

// isHTML reports whether a response looks like an HTML page rather than
// JSON. Both signals matter: sign-in pages set text/html, while some
// error pages arrive with a generic content type but start with markup.
func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}
