// Package engine is the outbound HTTP client for the external scaling
// engine spec §6 describes: one endpoint to request an instance-count
// change, one to push a resolved resource name at bind time.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the scaling engine at Host, authenticating with Secret
// via a header, the way controller_go's APIServer checks an inbound
// secret header on its own routes. Outbound calls are rate limited so a
// flapping app cannot flood the engine with scale requests.
type Client struct {
	host              string
	scalingEndpoint   string
	nameEndpoint      string
	secret            string
	httpClient        *http.Client
	limiter           *rate.Limiter
}

// Config configures a Client.
type Config struct {
	Host            string
	ScalingEndpoint string
	NameEndpoint    string
	Secret          string
	Timeout         time.Duration
	RateLimitPerSec float64
	Burst           int
}

// New builds a Client. Host is normalized to carry an http:// scheme if
// none was given, matching spec §6's "default http://" rule.
func New(cfg Config) *Client {
	host := cfg.Host
	if !hasScheme(host) {
		host = "http://" + host
	}
	return &Client{
		host:            host,
		scalingEndpoint: cfg.ScalingEndpoint,
		nameEndpoint:    cfg.NameEndpoint,
		secret:          cfg.Secret,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		limiter:         rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.Burst),
	}
}

func hasScheme(host string) bool {
	for i := 0; i < len(host)-2; i++ {
		if host[i] == ':' && host[i+1] == '/' && host[i+2] == '/' {
			return true
		}
	}
	return false
}

type scalingRequest struct {
	Instances int `json:"instances"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// RequestScale asks the engine to set resourceId's instance count to
// instances. It blocks on the rate limiter before sending.
func (c *Client) RequestScale(ctx context.Context, resourceID string, instances int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/%s", c.host, c.scalingEndpoint, resourceID)
	return c.post(ctx, url, scalingRequest{Instances: instances})
}

// RequestNameBinding pushes the resolved resource name for resourceID at
// bind time, when spec §9's "updateAppNameAtBinding" option is enabled.
func (c *Client) RequestNameBinding(ctx context.Context, resourceID, name string) error {
	url := fmt.Sprintf("%s/%s/%s", c.host, c.nameEndpoint, resourceID)
	return c.post(ctx, url, nameRequest{Name: name})
}

func (c *Client) post(ctx context.Context, url string, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("engine: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("engine: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("secret", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine: request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("engine: %s returned %d: %s", url, resp.StatusCode, string(respBody))
	}
	return nil
}
