package tweetstream

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Client is the top-level streaming client. It holds the shared transport,
// credentials source and telemetry; each stream is a separate Session.
type Client struct {
	cfg       ClientConfig
	transport Transport
	creds     CredentialsProvider
	tracer    trace.Tracer

	fileCreds *FileCredentials
}

// NewClient creates a fully-wired streaming client. No connection is made
// until a session is pulled from.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.defaults()

	c := &Client{
		cfg:    cfg,
		creds:  cfg.Credentials,
		tracer: newTracer(cfg.TracerProvider),
	}

	if c.creds == nil {
		if cfg.CredentialsFile != "" {
			fc, err := NewFileCredentials(cfg.CredentialsFile, cfg.Logger)
			if err != nil {
				return nil, err
			}
			c.fileCreds = fc
			c.creds = fc
		} else {
			c.creds = StaticCredentials{Username: cfg.Username, Password: cfg.Password}
		}
	}
	if c.creds.Credentials().Username == "" {
		cfg.Logger.Warn("stream client has no username, connections will likely be rejected")
	}

	c.transport = cfg.Transport
	if c.transport == nil {
		tr, err := newHTTPTransport(cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("stream transport: %w", err)
		}
		c.transport = tr
	}

	cfg.Logger.Debug("stream client ready", slog.String("base_url", cfg.BaseURL))
	return c, nil
}

// NewSession returns an inert session for v using a snapshot of the client's
// current credentials.
func (c *Client) NewSession(v Variant) *Session {
	return newSession(c.cfg, c.tracer, c.transport, c.creds.Credentials(), v)
}

// Close stops the credentials file watcher, if any. Open sessions are unaffected.
func (c *Client) Close() error {
	if c.fileCreds != nil {
		return c.fileCreds.Close()
	}
	return nil
}
