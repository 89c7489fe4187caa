// Package billing wraps the third-party billing platform's REST API
// (ACCOUNT, BILLING_PROFILE, PRODUCT, ACCOUNT_PRODUCT, promo tables and the
// hosted-payments session endpoint) using the REST API directly, no SDK.
// All calls attach the platform session identifier header.
package billing

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
)

// Client calls the billing platform through the same-origin proxy base URL.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// NewClient creates a billing platform client. sessionID is the platform
// session token attached to every request.
func NewClient(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthenticateHostedPayments obtains a hosted-payment-widget security token
// for the current platform session. The caller owns caching and
// invalidation; this always performs the network call.
func (c *Client) AuthenticateHostedPayments(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, "/hostedPayments/1.0/authenticate-session", map[string]any{
		"sessionId": c.sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("authenticate hosted payments session: %w", err)
	}

	accessToken, _ := resp["accessToken"].(map[string]interface{})
	token, _ := accessToken["content"].(string)
	if token == "" {
		return "", fmt.Errorf("authenticate hosted payments session: missing token in response")
	}
	return token, nil
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string, query url.Values) (map[string]interface{}, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.doRequest(req)
}

func (c *Client) post(ctx context.Context, path string, body any) (map[string]interface{}, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (map[string]interface{}, error) {
	return c.send(ctx, http.MethodPut, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req)
}

func (c *Client) doRequest(req *http.Request) (map[string]interface{}, error) {
	// Lowercase header name as the platform requires.
	req.Header.Set("sessionid", c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read billing response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("parse billing response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := "unknown error"
		if m, ok := result["message"].(string); ok && m != "" {
			msg = m
		} else if m, ok := result["ErrorText"].(string); ok && m != "" {
			msg = m
		}
		return nil, fmt.Errorf("billing API error (%d): %s", resp.StatusCode, msg)
	}

	return result, nil
}

// Response envelope helpers. The platform wraps results inconsistently:
// createResponse/upsertResponse/retrieveResponse/queryResponse, sometimes an
// array, sometimes a single object.

func objectList(resp map[string]interface{}, keys ...string) []map[string]interface{} {
	for _, key := range keys {
		switch v := resp[key].(type) {
		case []interface{}:
			out := make([]map[string]interface{}, 0, len(v))
			for _, item := range v {
				if obj, ok := item.(map[string]interface{}); ok {
					out = append(out, obj)
				}
			}
			return out
		case map[string]interface{}:
			return []map[string]interface{}{v}
		}
	}
	return nil
}

func firstObject(resp map[string]interface{}, keys ...string) map[string]interface{} {
	list := objectList(resp, keys...)
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

func str(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}
