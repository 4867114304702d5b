// Package streamtest provides a scripted streaming endpoint for tests.
package streamtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Chunk is one write to the response body, made after Delay.
type Chunk struct {
	Data  string
	Delay time.Duration
}

// Lines returns one immediate chunk per line, each terminated with "\r\n".
// An empty string yields a keepalive line.
func Lines(lines ...string) []Chunk {
	chunks := make([]Chunk, len(lines))
	for i, l := range lines {
		chunks[i] = Chunk{Data: l + "\r\n"}
	}
	return chunks
}

// Behavior scripts the response to one connection. stop is closed when the
// server shuts down; a Behavior that blocks must return once it is.
type Behavior func(w http.ResponseWriter, r *http.Request, stop <-chan struct{})

// Status answers every connection with code and an empty body.
func Status(code int) Behavior {
	return func(w http.ResponseWriter, _ *http.Request, _ <-chan struct{}) {
		http.Error(w, http.StatusText(code), code)
	}
}

// Deny rejects the credentials.
func Deny() Behavior {
	return Status(http.StatusUnauthorized)
}

// Stream writes chunks and then ends the response cleanly.
func Stream(chunks ...Chunk) Behavior {
	return func(w http.ResponseWriter, r *http.Request, stop <-chan struct{}) {
		writeChunks(w, r, stop, chunks)
	}
}

// Hold writes chunks and then keeps the connection open without sending
// anything until the client goes away or the server stops.
func Hold(chunks ...Chunk) Behavior {
	return func(w http.ResponseWriter, r *http.Request, stop <-chan struct{}) {
		if !writeChunks(w, r, stop, chunks) {
			return
		}
		select {
		case <-r.Context().Done():
		case <-stop:
		}
	}
}

// Abort writes chunks and then drops the connection without terminating the
// response.
func Abort(chunks ...Chunk) Behavior {
	return func(w http.ResponseWriter, r *http.Request, stop <-chan struct{}) {
		writeChunks(w, r, stop, chunks)
		panic(http.ErrAbortHandler)
	}
}

// Repeat writes line every interval until the client goes away or the server stops.
func Repeat(line string, interval time.Duration) Behavior {
	return func(w http.ResponseWriter, r *http.Request, stop <-chan struct{}) {
		rc := http.NewResponseController(w)
		w.WriteHeader(http.StatusOK)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.Write([]byte(line + "\r\n")); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			select {
			case <-ticker.C:
			case <-r.Context().Done():
				return
			case <-stop:
				return
			}
		}
	}
}

// writeChunks sends the status line and then each chunk, flushing after every
// write. It reports false if the connection ended early.
func writeChunks(w http.ResponseWriter, r *http.Request, stop <-chan struct{}, chunks []Chunk) bool {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return false
	}
	for _, c := range chunks {
		if c.Delay > 0 {
			timer := time.NewTimer(c.Delay)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return false
			case <-stop:
				timer.Stop()
				return false
			}
		}
		if _, err := w.Write([]byte(c.Data)); err != nil {
			return false
		}
		if err := rc.Flush(); err != nil {
			return false
		}
	}
	return true
}

// Request is what the server saw of one connection attempt.
type Request struct {
	Method    string
	Path      string
	Form      url.Values
	Username  string
	Password  string
	UserAgent string
	Header    http.Header
}

// Server is a local streaming endpoint driven by a Behavior.
type Server struct {
	srv      *httptest.Server
	behavior Behavior
	stop     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a server that answers every connection with b.
func NewServer(b Behavior) *Server {
	s := &Server{behavior: b, stop: make(chan struct{})}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	req := Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		Header:    r.Header.Clone(),
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err == nil {
			req.Form = r.PostForm
		}
	}
	req.Username, req.Password, _ = r.BasicAuth()

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.behavior(w, r, s.stop)
}

// URL returns the base URL of the server, without a trailing slash.
func (s *Server) URL() string {
	return s.srv.URL
}

// Requests returns the connection attempts seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close releases blocked behaviors and shuts the server down.
func (s *Server) Close() {
	s.once.Do(func() { close(s.stop) })
	s.srv.Close()
}
