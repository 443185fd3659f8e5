package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the shared HTTP collaborator for all marketplace adapters.
// Every call is bounded by the configured timeout; callers receive an
// error for any transport, HTTP or decode failure and translate it into
// the empty-snapshot policy.
type Client struct {
	rest *resty.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{rest: rest}
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers, params map[string]string, out interface{}) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParams(params).
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("request %s: unexpected status %d", url, resp.StatusCode())
	}
	return nil
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(out).
		Post(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("request %s: unexpected status %d", url, resp.StatusCode())
	}
	return nil
}
