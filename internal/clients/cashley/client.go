// Package cashley implements the HTTP client for the Cashley wallet API.
// Every endpoint answers with the {error, message, data} envelope; a response
// with error=true is a business failure and surfaces as *APIError with the
// server's message verbatim, while transport problems come back as ordinary
// wrapped errors.
package cashley

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.cashley.app/api"

// APIError is a business-level rejection reported inside the response
// envelope, as opposed to a network or decoding failure.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is a Cashley API client bound to one bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Cashley API client.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of the client bound to another user's token. The
// underlying HTTP client is shared.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// IsConfigured returns true if the client has a token
func (c *Client) IsConfigured() bool {
	return c.token != ""
}

// doRequest performs an HTTP request and unwraps the response envelope,
// returning the raw data payload.
func (c *Client) doRequest(method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if env.Error {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return nil, &APIError{Message: msg}
	}

	return env.Data, nil
}
