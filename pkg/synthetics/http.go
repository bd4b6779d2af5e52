package synthetics

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

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/certificates"
	"github.com/netsonde/synthctl/pkg/errors"
)

// DefaultAPIURL is the public synthetics API endpoint.
const DefaultAPIURL = "https://synthetics.api.netsonde.com"

const (
	authEmailHeader = "X-NS-Auth-Email"
	authTokenHeader = "X-NS-Auth-Token"
	requestIDHeader = "X-Request-ID"

	defaultRequestTimeout = 30 * time.Second
	defaultMaxAttempts    = 4
)

const (
	epAgents  = "/synthetics/v1/agents"
	epTests   = "/synthetics/v1/tests"
	epHealth  = "/synthetics/v1/health/tests"
	epResults = "/synthetics/v1/tests/results"
)

type opSpec struct {
	method  string
	ep      string
	suffix  string
	needID  bool
	respKey string
}

var apiOps = map[string]opSpec{
	OpAgentsList:         {method: http.MethodGet, ep: epAgents, respKey: "agents"},
	OpAgentGet:           {method: http.MethodGet, ep: epAgents, needID: true, respKey: "agent"},
	OpAgentUpdate:        {method: http.MethodPut, ep: epAgents, needID: true, respKey: "agent"},
	OpAgentPatch:         {method: http.MethodPatch, ep: epAgents, needID: true, respKey: "agent"},
	OpAgentDelete:        {method: http.MethodDelete, ep: epAgents, needID: true},
	OpTestsList:          {method: http.MethodGet, ep: epTests, respKey: "tests"},
	OpTestGet:            {method: http.MethodGet, ep: epTests, needID: true, respKey: "test"},
	OpTestCreate:         {method: http.MethodPost, ep: epTests, respKey: "test"},
	OpTestUpdate:         {method: http.MethodPut, ep: epTests, needID: true, respKey: "test"},
	OpTestPatch:          {method: http.MethodPatch, ep: epTests, needID: true, respKey: "test"},
	OpTestDelete:         {method: http.MethodDelete, ep: epTests, needID: true},
	OpTestStatusUpdate:   {method: http.MethodPut, ep: epTests, needID: true, suffix: "status"},
	OpGetHealthForTests:  {method: http.MethodPost, ep: epHealth, respKey: "health"},
	OpGetResultsForTests: {method: http.MethodPost, ep: epResults, respKey: "results"},
	OpGetTraceForTest:    {method: http.MethodPost, ep: epTests, needID: true, suffix: "results/trace", respKey: "trace"},
}

// NormalizeAPIURL maps a portal or bare API address to the synthetics API
// endpoint: a missing scheme becomes https and a host starting with "api."
// gains the "synthetics." prefix. Unparsable input is returned as-is.
func NormalizeAPIURL(raw string) string {
	if raw == "" {
		return DefaultAPIURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if strings.HasPrefix(u.Hostname(), "api.") {
		u.Host = "synthetics." + u.Host
	}
	return strings.TrimSuffix(u.String(), "/")
}

// HTTPTransport talks to the synthetics REST API. Server errors and network
// failures are retried with exponential backoff, client errors fail fast.
type HTTPTransport struct {
	url           string
	email         string
	token         string
	client        *http.Client
	maxAttempts   uint
	retryInterval time.Duration
}

type transportConfig struct {
	url           string
	proxy         string
	caFile        string
	timeout       time.Duration
	maxAttempts   uint
	retryInterval time.Duration
	httpClient    *http.Client
}

// TransportOption customizes an HTTPTransport.
type TransportOption func(*transportConfig)

// WithAPIURL points the transport at a non-default API endpoint. The value
// is passed through NormalizeAPIURL.
func WithAPIURL(u string) TransportOption {
	return func(c *transportConfig) {
		if u != "" {
			c.url = u
		}
	}
}

// WithProxy routes API requests through the given HTTP proxy.
func WithProxy(proxyURL string) TransportOption {
	return func(c *transportConfig) {
		c.proxy = proxyURL
	}
}

// WithCAFile extends the trust store with the PEM certificates in path.
func WithCAFile(path string) TransportOption {
	return func(c *transportConfig) {
		c.caFile = path
	}
}

// WithRequestTimeout bounds a single request attempt.
func WithRequestTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts caps the number of tries per request, retries included.
func WithMaxAttempts(n uint) TransportOption {
	return func(c *transportConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client, overriding the
// proxy, CA and timeout options.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(c *transportConfig) {
		c.httpClient = client
	}
}

// NewHTTPTransport builds a transport authenticating with the given account
// email and API token.
func NewHTTPTransport(email, token string, opts ...TransportOption) (*HTTPTransport, error) {
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if token == "" {
		missing = append(missing, "api token")
	}
	if len(missing) > 0 {
		return nil, errors.NewCredentialsError(missing...)
	}

	cfg := transportConfig{
		url:         DefaultAPIURL,
		timeout:     defaultRequestTimeout,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := cfg.httpClient
	if client == nil {
		tr := &http.Transport{}
		if cfg.proxy != "" {
			pu, err := url.Parse(cfg.proxy)
			if err != nil {
				return nil, errors.NewConfigError("invalid proxy URL '%s': %v", cfg.proxy, err)
			}
			tr.Proxy = http.ProxyURL(pu)
		}
		if cfg.caFile != "" {
			pool, err := certificates.ClientCAPool(cfg.caFile)
			if err != nil {
				return nil, err
			}
			tr.TLSClientConfig = &tls.Config{RootCAs: pool}
		}
		client = &http.Client{Transport: tr, Timeout: cfg.timeout}
	}

	return &HTTPTransport{
		url:           NormalizeAPIURL(cfg.url),
		email:         email,
		token:         token,
		client:        client,
		maxAttempts:   cfg.maxAttempts,
		retryInterval: cfg.retryInterval,
	}, nil
}

// URL returns the normalized API endpoint the transport talks to.
func (t *HTTPTransport) URL() string {
	return t.url
}

// Req executes the named operation and returns the payload under the
// operation's response key, or nil for operations without a response body.
func (t *HTTPTransport) Req(ctx context.Context, op string, req Request) (any, error) {
	spec, ok := apiOps[op]
	if !ok {
		return nil, errors.NewConfigError("unknown API operation '%s'", op)
	}

	u := t.url + spec.ep
	if spec.needID {
		if req.ID == "" {
			return nil, errors.NewConfigError("operation '%s' requires a resource id", op)
		}
		u += "/" + url.PathEscape(req.ID)
	}
	if spec.suffix != "" {
		u += "/" + spec.suffix
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for '%s': %w", op, err)
		}
	}

	data, err := t.send(ctx, op, spec.method, u, req.Params, body)
	if err != nil {
		return nil, err
	}
	if spec.respKey == "" {
		return nil, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.NewAPIRequestError(http.StatusOK,
			fmt.Sprintf("%s: cannot decode response: %v", op, err), string(data))
	}
	v, ok := payload[spec.respKey]
	if !ok {
		return nil, errors.NewAPIRequestError(http.StatusOK,
			fmt.Sprintf("%s: response is missing '%s'", op, spec.respKey), string(data))
	}
	return v, nil
}

func (t *HTTPTransport) send(ctx context.Context, op, method, u string, params map[string]string, body []byte) ([]byte, error) {
	log := zap.S().Named("transport")
	attempt := 0

	operation := func() ([]byte, error) {
		attempt++
		var rd io.Reader
		if len(body) > 0 {
			rd = bytes.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if len(params) > 0 {
			q := httpReq.URL.Query()
			for k, v := range params {
				q.Set(k, v)
			}
			httpReq.URL.RawQuery = q.Encode()
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set(authEmailHeader, t.email)
		httpReq.Header.Set(authTokenHeader, t.token)
		httpReq.Header.Set(requestIDHeader, uuid.NewString())

		log.Debugw("request", "op", op, "method", method, "url", httpReq.URL.String(), "attempt", attempt)
		resp, err := t.client.Do(httpReq)
		if err != nil {
			log.Warnw("request failed", "op", op, "attempt", attempt, "error", err)
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Warnw("response read failed", "op", op, "attempt", attempt, "error", err)
			return nil, err
		}

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			log.Warnw("server error", "op", op, "attempt", attempt, "status", resp.StatusCode)
			return nil, errors.NewAPIRequestError(resp.StatusCode,
				fmt.Sprintf("%s %s failed - status: %d", method, u, resp.StatusCode), string(data))
		case resp.StatusCode >= http.StatusBadRequest:
			return nil, backoff.Permanent(errors.NewAPIRequestError(resp.StatusCode,
				fmt.Sprintf("%s %s failed - status: %d", method, u, resp.StatusCode), string(data)))
		}
		return data, nil
	}

	bo := backoff.NewExponentialBackOff()
	if t.retryInterval > 0 {
		bo.InitialInterval = t.retryInterval
	}
	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(t.maxAttempts))
}
