package tweetstream

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected errorClass
	}{
		{"ok", 200, errNone},
		{"unauthorized", 401, errAuth},
		{"forbidden", 403, errForbidden},
		{"not found", 404, errNotFound},
		{"not acceptable", 406, errParams},
		{"too long", 413, errParams},
		{"range unacceptable", 416, errParams},
		{"enhance your calm", 420, errRateLimited},
		{"too many requests", 429, errRateLimited},
		{"service unavailable", 503, errServer},
		{"teapot", 418, errUnexpected},
		{"redirect", 302, errUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyStatus(tt.status)
			if result != tt.expected {
				t.Fatalf("classifyStatus(%d) = %s, want %s", tt.status, result, tt.expected)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	if err := statusError("http://x", 200); err != nil {
		t.Fatalf("expected nil for 200, got %v", err)
	}

	var authErr *AuthenticationError
	if !errors.As(statusError("http://x", 401), &authErr) {
		t.Fatal("expected AuthenticationError for 401")
	}
	if authErr.Status != 401 || authErr.URL != "http://x" {
		t.Fatalf("unexpected auth error fields: %+v", authErr)
	}

	// 403 is a stream-access problem, not rejected credentials.
	var connErr *ConnectionError
	if !errors.As(statusError("http://x", 403), &connErr) {
		t.Fatal("expected ConnectionError for 403")
	}
	if connErr.Status != 403 || connErr.Op != "open" {
		t.Fatalf("unexpected connection error fields: %+v", connErr)
	}
}

func TestConnectionErrorUnwrap(t *testing.T) {
	err := error(&ConnectionError{Op: "read", URL: "http://x/s", Err: io.EOF})
	if !errors.Is(err, io.EOF) {
		t.Fatal("expected errors.Is to reach io.EOF")
	}
	if got := err.Error(); got != "stream read http://x/s: EOF" {
		t.Fatalf("unexpected message %q", got)
	}

	err = &ConnectionError{Op: "read", Err: context.Canceled}
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected errors.Is to reach context.Canceled")
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{statusError("u", 420), true},
		{statusError("u", 429), true},
		{statusError("u", 503), false},
		{statusError("u", 401), false},
		{&ConnectionError{Op: "read", Err: io.EOF}, false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRateLimited(tt.err); got != tt.want {
			t.Errorf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
