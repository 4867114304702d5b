package tweetstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// StreamRequest describes one authenticated connection attempt.
type StreamRequest struct {
	Method   string
	URL      string
	Form     url.Values // sent form-encoded as the body when non-empty
	Username string
	Password string
	Headers  map[string]string
}

// StreamResponse is an open response: its status and the live body.
// The caller owns Body and must close it.
type StreamResponse struct {
	Status int
	Body   io.ReadCloser
}

// Transport opens streaming requests. Open must return as soon as the response
// headers arrive, leaving the body unread. Closing the body, or cancelling ctx,
// must unblock a pending Read on it.
type Transport interface {
	Open(ctx context.Context, req *StreamRequest) (*StreamResponse, error)
}

// httpTransport is the default Transport on top of net/http.
type httpTransport struct {
	client *http.Client
}

// newHTTPTransport builds a transport whose timeouts only cover connecting and
// waiting for headers; a healthy stream may stay open indefinitely.
func newHTTPTransport(cfg ClientConfig) (*httpTransport, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ConnectTimeout,
		DisableKeepAlives:     true,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
		cfg.Logger.Debug("stream transport using proxy", slog.String("proxy", stealth.MaskProxy(cfg.Proxy)))
	}
	return &httpTransport{
		client: &http.Client{Transport: tr, Timeout: 0},
	}, nil
}

func (t *httpTransport) Open(ctx context.Context, sr *StreamRequest) (*StreamResponse, error) {
	var body io.Reader
	if len(sr.Form) > 0 {
		body = strings.NewReader(sr.Form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, sr.Method, sr.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range sr.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.SetBasicAuth(sr.Username, sr.Password)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{Status: resp.StatusCode, Body: resp.Body}, nil
}
