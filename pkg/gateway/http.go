package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const userAgent = "easysms/1.0"

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body as a JSON object.
func (r *Response) JSON() (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, NewError("malformed provider response", r.StatusCode, map[string]any{"body": string(r.Body)})
	}
	return out, nil
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is the HTTP transport shared by the HTTP gateways. Requests are
// traced through otelhttp; transport failures come back as *Error.
type Client struct {
	client *http.Client
}

// NewClient builds a client from gateway transport options. Recognised keys:
// "proxy" (URL), "verify" (bool, TLS verification, default true) and
// "timeout" (seconds or duration string, default none; the caller's context
// deadline usually applies first).
func NewClient(options map[string]any) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if raw, ok := options["proxy"].(string); ok && raw != "" {
		if proxy, err := url.Parse(raw); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		}
	}
	if verify, ok := options["verify"].(bool); ok && !verify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per gateway
	}

	client := &http.Client{
		Transport: otelhttp.NewTransport(transport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "easysms.http " + r.Method
			}),
		),
	}
	switch v := options["timeout"].(type) {
	case int:
		client.Timeout = time.Duration(v) * time.Second
	case float64:
		client.Timeout = time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			client.Timeout = d
		}
	}
	return &Client{client: client}
}

// NewClientWith wraps an existing *http.Client, used by tests.
func NewClientWith(client *http.Client) *Client {
	return &Client{client: client}
}

// Get sends a GET request with query parameters
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, headers map[string]string) (*Response, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, WrapError(err, "failed to create request")
	}
	return c.Do(req, headers)
}

// PostForm sends an application/x-www-form-urlencoded POST
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, WrapError(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req, headers)
}

// PostJSON sends body encoded as JSON
func (c *Client) PostJSON(ctx context.Context, endpoint string, body any, headers map[string]string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, WrapError(err, "failed to encode request body")
	}
	return c.PostRaw(ctx, endpoint, "application/json", payload, headers)
}

// PostRaw sends a pre-encoded body, for gateways that sign the exact bytes.
func (c *Client) PostRaw(ctx context.Context, endpoint, contentType string, payload []byte, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, WrapError(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req, headers)
}

// Do sends req with the extra headers and reads the whole body.
func (c *Client) Do(req *http.Request, headers map[string]string) (*Response, error) {
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, WrapError(err, fmt.Sprintf("request to %s failed", req.URL.Host))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(err, "failed to read response body")
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if resp.StatusCode >= 500 {
		return out, NewError(http.StatusText(resp.StatusCode), resp.StatusCode, map[string]any{"body": string(body)}).AsTemporary()
	}
	return out, nil
}
