// Package pasteapi is a Go client for the hashpaste HTTP API.
//
//	c := pasteapi.New(pasteapi.WithBaseURL("http://localhost:3535"))
//	id, err := c.Create(ctx, "a=1", "python")
//	p, err := c.Get(ctx, id)
package pasteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hashpaste/internal/model"
)

const (
	// DefaultBaseURL is where a locally started server listens.
	DefaultBaseURL = "http://localhost:3535"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client talks to one hashpaste server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the server's base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client requests go through. It is copied,
// never modified. Nil means http.DefaultClient.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout regardless of option order. Zero
// disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.httpClient
	if base == nil {
		base = http.DefaultClient
	}
	hc := *base
	hc.Timeout = c.timeout
	c.httpClient = &hc
	return c
}

// BaseURL returns the server address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

type createRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

type createResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Create stores text and returns the new paste id. Empty text is sent as-is.
func (c *Client) Create(ctx context.Context, text, lang string) (string, error) {
	body, err := json.Marshal(createRequest{Text: text, Lang: lang})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/paste", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if resp.status != http.StatusCreated {
		return "", resp.err()
	}
	var out createResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.ID == "" {
		return "", &Error{Code: ErrServer, Status: resp.status, Message: "response carries no id"}
	}
	return out.ID, nil
}

// Get fetches a paste. ref may be an id, "#id" or a page URL with a fragment.
func (c *Client) Get(ctx context.Context, ref string) (model.Paste, error) {
	id, err := ParseRef(ref)
	if err != nil {
		return model.Paste{}, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/paste/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Paste{}, err
	}
	if resp.status != http.StatusOK {
		return model.Paste{}, resp.err()
	}
	var p model.Paste
	if err := json.Unmarshal(resp.body, &p); err != nil {
		return model.Paste{}, fmt.Errorf("decoding response: %w", err)
	}
	p.ID = id
	p.Lang = p.LangOrDefault()
	return p, nil
}

// Raw fetches the unrendered text of a paste.
func (c *Client) Raw(ctx context.Context, ref string) ([]byte, error) {
	id, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/raw/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.err()
	}
	return resp.body, nil
}

// Languages lists the highlighting tags the server accepts.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/langs", nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.err()
	}
	var langs []string
	if err := json.Unmarshal(resp.body, &langs); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return langs, nil
}

// PageURL is the browser address showing paste id.
func (c *Client) PageURL(id string) string {
	return c.baseURL + "/#" + id
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response{status: resp.StatusCode, body: b}, nil
}

func (r *response) err() error {
	msg := strings.TrimSpace(string(r.body))
	var er errorResponse
	if json.Unmarshal(r.body, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	if msg == "" {
		msg = http.StatusText(r.status)
	}

	code := ErrServer
	switch r.status {
	case http.StatusNotFound:
		code = ErrNotFound
	case http.StatusRequestEntityTooLarge:
		code = ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		code = ErrRateLimited
	case http.StatusUnprocessableEntity, http.StatusForbidden:
		code = ErrRejected
	case http.StatusBadRequest:
		code = ErrBadRequest
	default:
		msg = fmt.Sprintf("unexpected status %d: %s", r.status, msg)
	}
	return &Error{Code: code, Status: r.status, Message: msg}
}

// ParseRef extracts a paste id from an id, "#id", a page URL with a
// fragment, or an /api/paste/ or /api/raw/ URL.
func ParseRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing URL: %w", err)
		}
		switch {
		case u.Fragment != "":
			ref = u.Fragment
		case strings.HasPrefix(u.Path, "/api/paste/"):
			ref = strings.TrimPrefix(u.Path, "/api/paste/")
		case strings.HasPrefix(u.Path, "/api/raw/"):
			ref = strings.TrimPrefix(u.Path, "/api/raw/")
		default:
			ref = ""
		}
	}
	ref = strings.TrimPrefix(ref, "#")
	if ref == "" || strings.Contains(ref, "/") {
		return "", &Error{Code: ErrBadRequest, Message: "no paste id in reference"}
	}
	return ref, nil
}
