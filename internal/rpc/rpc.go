package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/models"
)

const unixPrefix = "unix:"

// HTTPConfig describes how to reach the status server.
type HTTPConfig struct {
	Address string        // host:port or socket path
	Network string        // unix, tcp
	Timeout time.Duration // per request
	BaseURL string
}

// ParseAddress splits "unix:/path.sock" or "host:port" into network and address.
func ParseAddress(addr string) (string, string) {
	if strings.HasPrefix(addr, unixPrefix) {
		return "unix", strings.TrimPrefix(addr, unixPrefix)
	}
	return "tcp", addr
}

// DefaultHTTPConfig targets the server listening on addr.
func DefaultHTTPConfig(addr string) *HTTPConfig {
	network, address := ParseAddress(addr)
	return &HTTPConfig{
		Address: address,
		Network: network,
		Timeout: 5 * time.Second,
		BaseURL: "http://localhost",
	}
}

/**
 * HTTP error returned by the status server
 * @property {int} StatusCode - HTTP status
 * @property {string} Code - models.ErrorResponse code, empty when the body was not an error document
 * @property {string} Message - error text
 */
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	config *HTTPConfig
	client *http.Client
}

/**
 * Create a client for the status server
 * @param {*HTTPConfig} config - target, unix sockets are dialled directly
 * @returns {*Client} Client, connections are opened per request
 */
func NewHTTPClient(config *HTTPConfig) *Client {
	dialer := &net.Dialer{Timeout: config.Timeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, config.Network, config.Address)
		},
	}
	return &Client{
		config: config,
		client: &http.Client{Transport: transport, Timeout: config.Timeout},
	}
}

/**
 * GET path and decode the JSON body into out
 * @param {context.Context} ctx - cancellation
 * @param {string} path - API path, e.g. /api/v1/status
 * @param {interface{}} out - decode target
 * @returns {error} Transport error, *HTTPError for non-2xx answers, or decode error
 */
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	url := strings.TrimSuffix(c.config.BaseURL, "/") + path
	logger.Debugf("Sending GET request to %s via %s://%s", url, c.config.Network, c.config.Address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody models.ErrorResponse
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			httpErr.Code = errBody.Code
			httpErr.Message = errBody.Error
		}
		return httpErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
