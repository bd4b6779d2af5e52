// Package inventory reads device and interface records from the network
// management REST API and adapts them, together with the synthetics agent
// list, to the resolver interface the test factory consumes.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

// DefaultAPIURL is the public management API endpoint. Unlike the
// synthetics endpoint it keeps the plain api host.
const DefaultAPIURL = "https://api.netsonde.com"

const (
	authEmailHeader = "X-NS-Auth-Email"
	authTokenHeader = "X-NS-Auth-Token"

	defaultRequestTimeout = 30 * time.Second

	epDevices = "/inventory/v1/devices"
)

// Client serves agent, device and interface inventory. Every listing is
// cached after the first fetch, so one factory run sees a single
// consistent snapshot no matter how many rules it evaluates.
type Client struct {
	url        string
	email      string
	token      string
	httpClient *http.Client
	synth      *synthetics.Client

	mu         sync.Mutex
	agents     []map[string]any
	devices    []map[string]any
	interfaces map[string][]map[string]any
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIURL points the client at a non-default management API endpoint.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = normalizeURL(u)
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient builds an inventory client authenticating with the given
// account email and API token. Agent listings are delegated to synth.
func NewClient(synth *synthetics.Client, email, token string, opts ...Option) *Client {
	c := &Client{
		url:        DefaultAPIURL,
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		synth:      synth,
		interfaces: map[string][]map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Agents returns all synthetics agents visible to the account.
func (c *Client) Agents(ctx context.Context) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agents != nil {
		return c.agents, nil
	}
	agents, err := c.synth.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	c.agents = agents
	return agents, nil
}

// Devices returns all devices registered in the account inventory.
func (c *Client) Devices(ctx context.Context) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.devices != nil {
		return c.devices, nil
	}
	devices, err := c.get(ctx, epDevices, "devices")
	if err != nil {
		return nil, err
	}
	c.devices = devices
	return devices, nil
}

// Interfaces returns the interfaces of one device.
func (c *Client) Interfaces(ctx context.Context, deviceID string) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.interfaces[deviceID]; ok {
		return cached, nil
	}
	path := fmt.Sprintf("%s/%s/interfaces", epDevices, url.PathEscape(deviceID))
	interfaces, err := c.get(ctx, path, "interfaces")
	if err != nil {
		return nil, err
	}
	c.interfaces[deviceID] = interfaces
	return interfaces, nil
}

// get fetches one inventory listing and unwraps its response envelope.
func (c *Client) get(ctx context.Context, path, key string) ([]map[string]any, error) {
	u := c.url + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authEmailHeader, c.email)
	req.Header.Set(authTokenHeader, c.token)

	zap.S().Named("inventory").Debugw("request", "url", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIRequestError(resp.StatusCode,
			fmt.Sprintf("GET %s failed - status: %d", u, resp.StatusCode), string(data))
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.NewAPIRequestError(resp.StatusCode,
			fmt.Sprintf("GET %s: cannot decode response: %v", u, err), string(data))
	}
	items, ok := payload[key].([]any)
	if !ok {
		return nil, errors.NewAPIRequestError(resp.StatusCode,
			fmt.Sprintf("GET %s: response is missing '%s'", u, key), string(data))
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records, nil
}

func normalizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return strings.TrimSuffix(raw, "/")
}
