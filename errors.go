package tweetstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionClosed is wrapped by the ConnectionError returned from Next after Close.
var ErrSessionClosed = errors.New("session closed")

// AuthenticationError reports that the stream endpoint rejected the credentials.
// It is only ever returned from the pull that opens the connection.
type AuthenticationError struct {
	URL    string
	Status int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication rejected by %s (HTTP %d)", e.URL, e.Status)
}

// ConnectionError is the umbrella for every non-auth failure: transport faults,
// non-200 responses, the server closing the stream, malformed payload lines and
// cancellation. Err holds the underlying cause.
type ConnectionError struct {
	Op     string // "open", "read" or "decode"
	URL    string
	Status int // set when the failure was an unexpected HTTP status
	Err    error
}

func (e *ConnectionError) Error() string {
	msg := "stream " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" HTTP %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// InvalidParameterError reports a variant or configuration value rejected before
// any network activity.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// errorClass categorizes the response status of a connection attempt.
type errorClass int

const (
	errNone        errorClass = iota
	errAuth                   // 401: credentials rejected
	errForbidden              // 403: account lacks stream access
	errNotFound               // 404: unknown stream path
	errParams                 // 406, 413, 416: parameters rejected by the server
	errRateLimited            // 420, 429: too many connections
	errServer                 // 5xx
	errUnexpected             // anything else that is not 200
)

// classifyStatus maps an HTTP status from the stream endpoint to an errorClass.
func classifyStatus(status int) errorClass {
	switch {
	case status == http.StatusOK:
		return errNone
	case status == http.StatusUnauthorized:
		return errAuth
	case status == http.StatusForbidden:
		return errForbidden
	case status == http.StatusNotFound:
		return errNotFound
	case status == http.StatusNotAcceptable,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusRequestedRangeNotSatisfiable:
		return errParams
	case status == 420, status == http.StatusTooManyRequests:
		return errRateLimited
	case status >= 500:
		return errServer
	}
	return errUnexpected
}

func (c errorClass) String() string {
	switch c {
	case errNone:
		return "ok"
	case errAuth:
		return "unauthorized"
	case errForbidden:
		return "forbidden"
	case errNotFound:
		return "not found"
	case errParams:
		return "parameters rejected"
	case errRateLimited:
		return "rate limited"
	case errServer:
		return "server error"
	}
	return "unexpected status"
}

// statusError converts a non-200 open response into the caller-facing error kind.
// 401 is the only status that yields an AuthenticationError.
func statusError(url string, status int) error {
	class := classifyStatus(status)
	switch class {
	case errNone:
		return nil
	case errAuth:
		return &AuthenticationError{URL: url, Status: status}
	}
	return &ConnectionError{Op: "open", URL: url, Status: status, Err: errors.New(class.String())}
}

// IsRateLimited reports whether err is a ConnectionError for a connection
// attempt the server refused as too frequent (HTTP 420 or 429).
func IsRateLimited(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Status != 0 && classifyStatus(ce.Status) == errRateLimited
}
