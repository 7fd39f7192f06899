package styletelling

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

// Client is the styletelling API entry point.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	userAgent string
	http      *http.Client
	obs       *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("styletelling: base URL required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("styletelling: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("styletelling: unsupported scheme %q", u.Scheme)
	}

	cfg := &clientConfig{userAgent: "styletelling-go"}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   u,
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		http:      cfg.httpClient,
		obs:       obs,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ""
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Taxonomy returns the attributes and categories the server ranks with.
func (c *Client) Taxonomy(ctx context.Context) (tx Taxonomy, err error) {
	start := time.Now()
	defer func() { c.obs.observe("taxonomy", start, err) }()

	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/taxonomy", nil, nil)
	if err != nil {
		return Taxonomy{}, err
	}
	err = c.do(req, &tx)
	return tx, err
}

// Usage returns the oracle usage report for the given period.
// An empty period lets the server pick its default (month).
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (rep UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	var q url.Values
	if period != "" {
		q = url.Values{"period": {string(period)}}
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/usage", q, nil)
	if err != nil {
		return UsageReport{}, err
	}
	err = c.do(req, &rep)
	return rep, err
}
