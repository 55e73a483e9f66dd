// Package hederadex is a small HTTP client for the hederadexd REST API.
package hederadex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// DefaultPollInterval is the interval WaitJob uses when none is given.
const DefaultPollInterval = 500 * time.Millisecond

// Client wraps the HTTP interactions with a hederadexd instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// JobSubmission is the body accepted by POST /api/v1/jobs. Payload is the
// JSON request of the chosen kind (quote, swap, add_liquidity, ...).
type JobSubmission struct {
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind"`
	Network string `json:"network,omitempty"`
	Payload any    `json:"payload"`
}

// Job mirrors the server side job record.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Network    string          `json:"network,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
	Terminal   bool            `json:"terminal"`
}

// Succeeded reports whether the job finished successfully.
func (j Job) Succeeded() bool { return j.Status == "succeeded" }

// QuoteQuery selects a quote. Asset references are HBAR, a 0.0.N id or an
// EVM address.
type QuoteQuery struct {
	Network     string
	AssetIn     string
	AssetOut    string
	Amount      string
	Fee         uint32
	ExactOutput bool
}

// Quote is the quoted trade in smallest units.
type Quote struct {
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	GasEstimate string `json:"gas_estimate,omitempty"`
}

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("hederadex api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("hederadex api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client. When httpClient is nil a client with
// DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SubmitJob enqueues a DEX operation.
func (c *Client) SubmitJob(ctx context.Context, submission JobSubmission) (Job, error) {
	var job Job
	if err := c.post(ctx, "/api/v1/jobs", submission, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetJob fetches a job by identifier.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	if err := c.get(ctx, "/api/v1/jobs/"+id, nil, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// WaitJob polls GetJob until the job is terminal or ctx ends.
func (c *Client) WaitJob(ctx context.Context, id string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Terminal {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Quote asks the service for a read-only quote.
func (c *Client) Quote(ctx context.Context, q QuoteQuery) (Quote, error) {
	params := url.Values{}
	params.Set("in", q.AssetIn)
	params.Set("out", q.AssetOut)
	params.Set("amount", q.Amount)
	if q.Network != "" {
		params.Set("network", q.Network)
	}
	if q.Fee != 0 {
		params.Set("fee", strconv.FormatUint(uint64(q.Fee), 10))
	}
	if q.ExactOutput {
		params.Set("exact_output", "true")
	}
	var quote Quote
	if err := c.get(ctx, "/api/v1/quote", params, &quote); err != nil {
		return Quote{}, err
	}
	return quote, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(params) > 0 {
		rel.RawQuery = params.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
