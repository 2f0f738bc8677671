package semantic

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

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/query"
)

// ClientConfig configures the semantic service client.
type ClientConfig struct {
	BaseURL       string
	Token         string
	EnvironmentID string
	Dialect       query.Dialect
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client is the semantic service HTTP client. Every response is a
// {data, error} envelope; a set error field or an unparseable body fails the call.
type Client struct {
	baseURL       string
	token         string
	environmentID string
	dialect       query.Dialect
	timeout       time.Duration
	httpClient    *http.Client
}

// NewClient creates a new semantic service client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:       base,
		token:         cfg.Token,
		environmentID: cfg.EnvironmentID,
		dialect:       cfg.Dialect,
		timeout:       cfg.Timeout,
		httpClient:    httpClient,
	}, nil
}

type metricPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type dimensionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Grain       string `json:"grain"`
}

// ListMetrics fetches the metric catalog.
func (c *Client) ListMetrics(ctx context.Context) ([]catalog.Metric, error) {
	var payload []metricPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/metrics", nil, nil, &payload); err != nil {
		return nil, err
	}
	return toMetrics(payload), nil
}

// ListDimensions fetches the dimensions usable with the given metrics.
func (c *Client) ListDimensions(ctx context.Context, metrics []string) ([]catalog.Dimension, error) {
	params := url.Values{}
	if len(metrics) > 0 {
		params.Set("metrics", strings.Join(metrics, ","))
	}
	var payload []dimensionPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/dimensions", params, nil, &payload); err != nil {
		return nil, err
	}
	return toDimensions(payload), nil
}

// Query executes a structured request and returns rows in service order.
func (c *Client) Query(ctx context.Context, req query.Request) (*query.Result, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/v1/query", nil, NewWireRequest(req, c.dialect), &raw); err != nil {
		return nil, err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}
	return query.NewResult(req, rows), nil
}

// CompiledSQL returns the warehouse SQL the service would run for req.
func (c *Client) CompiledSQL(ctx context.Context, req query.Request) (string, error) {
	var payload struct {
		SQL string `json:"sql"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/query/sql", nil, NewWireRequest(req, c.dialect), &payload); err != nil {
		return "", err
	}
	if payload.SQL == "" {
		return "", fmt.Errorf("%w: missing sql", ErrMalformedResponse)
	}
	return payload.SQL, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if params == nil {
		params = url.Values{}
	}
	if c.environmentID != "" {
		params.Set("environment_id", c.environmentID)
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	parseErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if parseErr == nil {
			if text := errorText(env.Error); text != "" {
				msg = text
			}
		}
		return &ServiceError{Status: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, parseErr)
	}
	if text := errorText(env.Error); text != "" {
		return &ServiceError{Status: resp.StatusCode, Message: text}
	}
	if len(env.Data) == 0 || isNull(env.Data) {
		return fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = env.Data
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func toMetrics(payload []metricPayload) []catalog.Metric {
	out := make([]catalog.Metric, 0, len(payload))
	for _, p := range payload {
		if p.Name == "" {
			continue
		}
		out = append(out, catalog.Metric{Name: p.Name, Description: p.Description, Kind: catalog.MetricSimple})
	}
	return out
}

func toDimensions(payload []dimensionPayload) []catalog.Dimension {
	out := make([]catalog.Dimension, 0, len(payload))
	for _, p := range payload {
		if p.Name == "" {
			continue
		}
		kind := catalog.DimensionCategorical
		if strings.EqualFold(p.Type, "time") {
			kind = catalog.DimensionTime
		}
		out = append(out, catalog.Dimension{Name: p.Name, Description: p.Description, Kind: kind, Grain: p.Grain})
	}
	return out
}
