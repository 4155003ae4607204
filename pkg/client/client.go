package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoSelection is returned by Predict when neither model was requested.
var ErrNoSelection = errors.New("select at least one model!")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Field      string `json:"field"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("server %d (%s, field %s): %s", e.StatusCode, e.Status, e.Field, e.Message)
	}
	return fmt.Sprintf("server %d: %s", e.StatusCode, e.Message)
}

type Output struct {
	Model string  `json:"model"`
	Price float64 `json:"price"`
}

// Prediction is the decoded body of a successful /api/predict call.
type Prediction struct {
	Price     float64  `json:"price"`
	Message   string   `json:"message"`
	Selection string   `json:"selection"`
	Outputs   []Output `json:"outputs"`
	Cached    bool     `json:"cached"`
}

type Client struct {
	base string
	http *http.Client
}

// Dial checks that a server answers /health at addr ("host:port" or a URL).
func Dial(addr string) (*Client, error) {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		if _, _, err := net.SplitHostPort(base); err != nil {
			return nil, err
		}
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{MaxIdleConnsPerHost: 100},
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Predict(ctx context.Context, brand string, screenSize, hardDisk, ram float64, useKNN, useRandomForest bool) (*Prediction, error) {
	body := map[string]interface{}{
		"brand":         brand,
		"screen_size":   screenSize,
		"harddisk":      hardDisk,
		"ram":           ram,
		"knn":           useKNN,
		"random_forest": useRandomForest,
	}
	var resp struct {
		Status     string     `json:"status"`
		Message    string     `json:"message"`
		Prediction Prediction `json:"prediction"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/predict", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "no_selection" {
		return nil, ErrNoSelection
	}
	p := resp.Prediction
	p.Message = resp.Message
	return &p, nil
}

func (c *Client) Brands(ctx context.Context) ([]string, error) {
	var resp struct {
		Brands []string `json:"brands"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/brands", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Brands, nil
}

// Describe returns the numeric summaries keyed by column.
func (c *Client) Describe(ctx context.Context) ([]map[string]interface{}, error) {
	var resp struct {
		Numeric []map[string]interface{} `json:"numeric"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/describe", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Numeric, nil
}

// Query runs a SELECT against the cleaned dataset.
func (c *Client) Query(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	var resp struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/query", map[string]string{"query": sql}, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Laptops(ctx context.Context, minPrice, maxPrice float64) ([]map[string]interface{}, error) {
	q := url.Values{}
	q.Set("min_price", strconv.FormatFloat(minPrice, 'f', -1, 64))
	q.Set("max_price", strconv.FormatFloat(maxPrice, 'f', -1, 64))
	var resp struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/laptops?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// do sends one request. GET requests are retried once on a transport error.
// POSTs are sent only once: a repeated predict would record twice.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		if ctx.Err() != nil || method != http.MethodGet {
			return err
		}
		c.http.CloseIdleConnections()
		if resp, err = c.send(ctx, method, path, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
