package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tweetstream "github.com/anatolykoptev/go-tweetstream"
	"github.com/anatolykoptev/go-tweetstream/internal/streamtest"
)

func TestBuildVariant(t *testing.T) {
	v, err := buildVariant("", "")
	require.NoError(t, err)
	assert.Equal(t, tweetstream.KindSample, v.Kind())

	v, err = buildVariant("1, 2,3", "")
	require.NoError(t, err)
	assert.Equal(t, tweetstream.KindFollow, v.Kind())
	assert.Equal(t, []int64{1, 2, 3}, v.IDs())

	v, err = buildVariant("", "opera, go")
	require.NoError(t, err)
	assert.Equal(t, []string{"opera", "go"}, v.Terms())
}

func TestBuildVariantErrors(t *testing.T) {
	_, err := buildVariant("1", "go")
	assert.Error(t, err)

	_, err = buildVariant("abc", "")
	assert.Error(t, err)

	_, err = buildVariant("", "go,,")
	var perr *tweetstream.InvalidParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "track[1]", perr.Param)
}

// writeConfig points a YAML config file at baseURL.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tweetstream.yaml")
	data := "base_url: " + baseURL + "\nusername: user\npassword: pass\nconnect_timeout: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (int, []string) {
	t.Helper()
	var out bytes.Buffer
	code := run(ctx, args, &out, io.Discard)
	text := strings.TrimSuffix(out.String(), "\n")
	if text == "" {
		return code, nil
	}
	return code, strings.Split(text, "\n")
}

func TestRunLimitWithinOneSession(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Stream(streamtest.Lines(`{"n":0}`, `{"n":1}`, `{"n":2}`)...))
	defer srv.Close()

	code, lines := runCLI(t, context.Background(), "-config", writeConfig(t, srv.URL()), "-limit", "2")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, []string{`{"n":0}`, `{"n":1}`}, lines)
	assert.Len(t, srv.Requests(), 1)
}

func TestRunLimitAcrossReconnects(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Stream(streamtest.Lines(`{"n":0}`, `{"n":1}`, `{"n":2}`)...))
	defer srv.Close()

	code, lines := runCLI(t, context.Background(),
		"-config", writeConfig(t, srv.URL()), "-limit", "5", "-retry-wait", "1ms")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, []string{`{"n":0}`, `{"n":1}`, `{"n":2}`, `{"n":0}`, `{"n":1}`}, lines)
	assert.Len(t, srv.Requests(), 2)
}

func TestRunAuthenticationErrorExitCode(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Deny())
	defer srv.Close()

	code, lines := runCLI(t, context.Background(), "-config", writeConfig(t, srv.URL()), "-retry-wait", "1ms")
	assert.Equal(t, exitAuthError, code)
	assert.Empty(t, lines)
	assert.Len(t, srv.Requests(), 1)
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Status(503))
	defer srv.Close()

	code, _ := runCLI(t, context.Background(),
		"-config", writeConfig(t, srv.URL()), "-max-retries", "2", "-retry-wait", "1ms")
	assert.Equal(t, exitFailed, code)
	assert.Len(t, srv.Requests(), 3)
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Hold(streamtest.Lines(`{"n":0}`)...))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	code, lines := runCLI(t, ctx, "-config", writeConfig(t, srv.URL()))
	assert.Equal(t, exitOK, code)
	assert.Equal(t, []string{`{"n":0}`}, lines)
}

func TestRunSummary(t *testing.T) {
	srv := streamtest.NewServer(streamtest.Hold(streamtest.Lines(
		`{"id":1,"text":"hello\nworld","user":{"id":2,"screen_name":"bob"}}`,
		`{"delete":{"status":{"id":3,"user_id":2}}}`,
		`{"limit":{"track":7}}`,
		`{"event":"x"}`,
	)...))
	defer srv.Close()

	code, lines := runCLI(t, context.Background(),
		"-config", writeConfig(t, srv.URL()), "-summary", "-limit", "4")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, []string{
		"1 @bob: hello world",
		"delete 3",
		"limit 7 undelivered",
		`unknown {"event":"x"}`,
	}, lines)
}

func TestRunUsageErrors(t *testing.T) {
	code, _ := runCLI(t, context.Background(), "-follow", "1", "-track", "go")
	assert.Equal(t, exitUsage, code)

	code, _ = runCLI(t, context.Background(), "-no-such-flag")
	assert.Equal(t, exitUsage, code)

	code, _ = runCLI(t, context.Background(), "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitUsage, code)
}
