// Package remote calls a face-mesh sidecar over HTTP. The sidecar takes a
// base64 image and answers with a face box, its score and normalized mesh
// landmarks.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/config"
	"github.com/yungbote/rtc-attention/internal/platform/httpx"
	"github.com/yungbote/rtc-attention/internal/vision"
)

type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (e *HTTPError) Error() string {
	if e == nil {
		return "face service http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("face service http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("face service http error: status=%d body=%s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	path    string
	apiKey  string
	timeout time.Duration

	maxRetries int
	backoff    time.Duration

	httpClient *http.Client
}

func New(cfg config.DetectorConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote detector: base_url required")
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = "/v1/face"
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	backoff := cfg.RetryBackoff.Duration
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		baseURL:    baseURL,
		path:       path,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    backoff,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient swaps the transport, mainly so tests can stub the network.
func NewWithHTTPClient(cfg config.DetectorConfig, httpClient *http.Client) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

type faceRequest struct {
	Image  string `json:"image"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type faceResponse struct {
	Faces []struct {
		Box *struct {
			XMin   float64 `json:"xmin"`
			YMin   float64 `json:"ymin"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"box"`
		Score     float64          `json:"score"`
		Landmarks []features.Point `json:"landmarks"`
	} `json:"faces"`
}

// Detect reports the first face the service returns. Box coordinates arrive
// normalized and are scaled to pixels here.
func (c *Client) Detect(ctx context.Context, img vision.Image) (vision.Detection, error) {
	req := faceRequest{
		Image:  base64.StdEncoding.EncodeToString(img.Bytes),
		Format: img.Format,
		Width:  img.Width,
		Height: img.Height,
	}
	var resp faceResponse
	if err := c.doWithRetry(ctx, http.MethodPost, c.path, req, &resp); err != nil {
		return vision.Detection{}, &vision.DetectorError{Detector: "remote", Err: err}
	}
	if len(resp.Faces) == 0 {
		return vision.Detection{}, nil
	}

	face := resp.Faces[0]
	det := vision.Detection{
		Confidence: face.Score,
		Landmarks:  face.Landmarks,
	}
	if face.Box != nil {
		w, h := float64(img.Width), float64(img.Height)
		if w <= 0 || h <= 0 {
			w, h = 1, 1
		}
		det.Box = &features.BoundingBox{
			XMin:   face.Box.XMin * w,
			YMin:   face.Box.YMin * h,
			Width:  face.Box.Width * w,
			Height: face.Box.Height * h,
		}
	}
	return det, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body any, out any) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.doJSON(ctx, method, path, body, out)
		if err == nil || attempt >= c.maxRetries || !httpx.IsRetryable(ctx, err) {
			return err
		}
		wait := httpx.Jitter(c.backoff << attempt)
		var he *HTTPError
		if errors.As(err, &he) && he.RetryAfter > wait {
			wait = he.RetryAfter
		}
		if serr := httpx.Sleep(ctx, wait); serr != nil {
			return err
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: httpx.RetryAfter(resp, 0, 5*time.Second),
		}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
