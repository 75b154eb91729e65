package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/config"
)

const defaultTimeout = 30 * time.Second

// Client issues RPC calls against one Janus gateway endpoint. The
// configuration snapshot is immutable: updating credentials means building
// a new client, so an in-flight request never observes a half-swapped state.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	transport  *LoggingTransport
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New builds a client from a remote config snapshot.
func New(cfg config.RemoteConfig, logDir string, opts ...Option) *Client {
	transport := NewLoggingTransport(nil, logDir, cfg.NetworkLogs)
	c := &Client{
		endpoint:  strings.TrimSpace(cfg.URL),
		token:     cfg.Token,
		transport: transport,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the gateway URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases the network log file, if any.
func (c *Client) Close() error {
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

// Invoke builds the envelope for method, posts it, and normalizes the
// result. The returned Response is never nil: transport and decode failures
// yield the sentinel envelope plus a coded error, while a remote-reported
// failure passes through with a nil error. Callers branch on Response.OK()
// for remote outcomes and on the error code for local ones.
func (c *Client) Invoke(ctx context.Context, method string, params map[string]any) (*Response, error) {
	envelope := BuildEnvelope(method, params)

	body, err := json.Marshal(envelope)
	if err != nil {
		return FailedRequest(), apperr.Wrap(err, apperr.CodeInternal, "marshal request envelope")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return FailedRequest(), apperr.Wrap(err, apperr.CodeTransport, "build request").
			WithContext("endpoint", c.endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FailedRequest(), apperr.Wrap(err, apperr.CodeTransport, "gateway request failed").
			WithContext("method", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return FailedRequest(), apperr.Wrap(err, apperr.CodeTransport, "read gateway response").
			WithContext("method", method)
	}

	// The gateway reports operation outcomes in the envelope code, not the
	// HTTP status. A non-JSON content type means the request never reached
	// the RPC layer (proxy error page, auth interstitial); treat it as a
	// transport failure but keep the text for diagnostics.
	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		failed := FailedRequest()
		failed.Raw = string(raw)
		return failed, apperr.New(apperr.CodeTransport, "non-JSON gateway response").
			WithContext("method", method).
			WithContext("status", resp.StatusCode).
			WithContext("content_type", resp.Header.Get("Content-Type"))
	}

	var result Response
	if err := json.Unmarshal(raw, &result); err != nil {
		failed := FailedRequest()
		failed.Raw = string(raw)
		return failed, apperr.Wrap(err, apperr.CodeDecode, "decode gateway response").
			WithContext("method", method)
	}
	if result.Code == "" {
		failed := FailedRequest()
		failed.Raw = string(raw)
		return failed, apperr.New(apperr.CodeDecode, "gateway response missing code").
			WithContext("method", method)
	}

	return &result, nil
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Ping checks connectivity by fetching the current user identity.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.UserInfo(ctx)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apperr.New(apperr.CodeRemote, fmt.Sprintf("gateway returned %s: %s", resp.Code, resp.Message))
	}
	return nil
}
