package tweetstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Session is one authenticated streaming connection delivering JSON objects
// in arrival order.
//
// A Session is inert until the first call to Next, which opens the connection.
// There is no reconnect: once Next returns an error the session is finished and
// every later call returns the same error. Start a new Session to resume.
//
// Next and All must not be called from more than one goroutine at a time.
// Count, Stats and Close are safe to call from any goroutine; Close is the way
// to stop a Next that is blocked waiting for data.
type Session struct {
	id        string
	variant   Variant
	method    string
	url       string
	form      url.Values
	creds     Credentials
	headers   map[string]string
	transport Transport
	tracer    trace.Tracer
	log       *slog.Logger
	metrics   func(variant string, success bool)
	readSize  int
	maxLine   int
	now       func() time.Time

	// Owned by the goroutine calling Next.
	lines *lineReader
	err   error

	count atomic.Int64

	mu         sync.Mutex
	body       io.ReadCloser
	cancel     context.CancelFunc
	closed     bool
	connected  bool
	startedAt  time.Time
	keepalives int64
	rate       rateMeter
}

func newSession(cfg ClientConfig, tracer trace.Tracer, transport Transport, creds Credentials, v Variant) *Session {
	method, target, form := v.resolve(cfg.BaseURL)
	id := uuid.NewString()
	return &Session{
		id:        id,
		variant:   v,
		method:    method,
		url:       target,
		form:      form,
		creds:     creds,
		headers:   streamHeaders(cfg.UserAgent),
		transport: transport,
		tracer:    tracer,
		log:       cfg.Logger.With(slog.String("session", id), slog.String("variant", v.Kind().String())),
		metrics:   cfg.MetricsHook,
		readSize:  cfg.ReadBufferSize,
		maxLine:   cfg.MaxLineSize,
		now:       time.Now,
		rate:      rateMeter{period: cfg.RatePeriod},
	}
}

// ID returns a random identifier for the session, used in logs and spans.
func (s *Session) ID() string { return s.id }

// Variant returns the stream variant the session was built for.
func (s *Session) Variant() Variant { return s.variant }

// URL returns the resolved stream URL.
func (s *Session) URL() string { return s.url }

// Count returns how many objects have been delivered. It never decreases and
// stays readable after the session fails.
func (s *Session) Count() int64 { return s.count.Load() }

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Count:      s.count.Load(),
		Keepalives: s.keepalives,
		Rate:       s.rate.rate,
		StartedAt:  s.startedAt,
		Connected:  s.connected,
	}
}

// Next returns the next object from the stream, opening the connection on the
// first call. Keepalive lines are skipped.
//
// Errors are *AuthenticationError when the credentials are rejected on connect,
// and *ConnectionError for everything else: transport faults, unexpected HTTP
// statuses, the server closing the stream, a line that is not valid JSON, ctx
// being cancelled, or Close having been called. Cancelling ctx ends the session.
func (s *Session) Next(ctx context.Context) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(&ConnectionError{Op: "read", URL: s.url, Err: err})
	}
	if s.isClosed() {
		return nil, s.fail(&ConnectionError{Op: "read", URL: s.url, Err: ErrSessionClosed})
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	if s.lines == nil {
		if err := s.open(ctx); err != nil {
			return nil, s.fail(err)
		}
	}

	for {
		line, err := s.lines.next()
		if err != nil {
			return nil, s.fail(s.readError(ctx, err))
		}
		if len(line) == 0 {
			s.mu.Lock()
			s.keepalives++
			s.mu.Unlock()
			continue
		}

		var obj json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, s.fail(&ConnectionError{Op: "decode", URL: s.url, Err: err})
		}

		s.count.Add(1)
		s.mu.Lock()
		s.rate.observe(s.now())
		s.mu.Unlock()
		return obj, nil
	}
}

// All returns an iterator over the session's objects. It yields each object
// with a nil error, then yields the terminal error once and stops.
func (s *Session) All(ctx context.Context) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for {
			obj, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(obj, nil) {
				return
			}
		}
	}
}

// Close releases the connection. It is idempotent and may be called while
// another goroutine is blocked in Next, which then returns a ConnectionError
// wrapping ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.connected = false
	body, cancel := s.body, s.cancel
	s.body, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if body != nil {
		return body.Close()
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// open performs the authenticated request and prepares the line reader.
func (s *Session) open(ctx context.Context) (err error) {
	// The connection outlives the ctx of this particular pull; cancellation
	// of ctx reaches it through Close.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return &ConnectionError{Op: "open", URL: s.url, Err: ErrSessionClosed}
	}
	s.cancel = cancel
	s.mu.Unlock()

	spanCtx, span := s.tracer.Start(connCtx, "tweetstream.open",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attrSession.String(s.id),
			attrVariant.String(s.variant.Kind().String()),
			attrMethod.String(s.method),
			attrURL.String(s.url),
		))
	defer func() { endSpan(span, err) }()

	s.log.Debug("stream connecting", slog.String("url", s.url), slog.String("user", s.creds.Username))

	resp, err := s.transport.Open(spanCtx, &StreamRequest{
		Method:   s.method,
		URL:      s.url,
		Form:     s.form,
		Username: s.creds.Username,
		Password: s.creds.Password,
		Headers:  s.headers,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if s.isClosed() {
			err = ErrSessionClosed
		}
		return &ConnectionError{Op: "open", URL: s.url, Err: err}
	}
	span.SetAttributes(attrStatus.Int(resp.Status))

	if err := statusError(s.url, resp.Status); err != nil {
		resp.Body.Close()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		resp.Body.Close()
		return &ConnectionError{Op: "open", URL: s.url, Err: ErrSessionClosed}
	}
	s.body = resp.Body
	s.connected = true
	s.startedAt = s.now()
	s.rate.start(s.startedAt)
	s.mu.Unlock()

	s.lines = newLineReader(resp.Body, s.readSize, s.maxLine)
	s.log.Debug("stream connected", slog.String("url", s.url))
	if s.metrics != nil {
		s.metrics(s.variant.Kind().String(), true)
	}
	return nil
}

// readError classifies a failure from the line reader.
func (s *Session) readError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case s.isClosed():
		err = ErrSessionClosed
	}
	return &ConnectionError{Op: "read", URL: s.url, Err: err}
}

// fail makes err the session's terminal error and releases the connection.
func (s *Session) fail(err error) error {
	s.err = err
	_ = s.Close()

	count := s.count.Load()
	if errors.Is(err, ErrSessionClosed) || errors.Is(err, context.Canceled) {
		s.log.Debug("stream stopped", slog.Int64("count", count), slog.Any("error", err))
	} else {
		s.log.Warn("stream failed", slog.String("url", s.url), slog.Int64("count", count), slog.Any("error", err))
	}
	if s.metrics != nil {
		s.metrics(s.variant.Kind().String(), false)
	}
	return err
}
