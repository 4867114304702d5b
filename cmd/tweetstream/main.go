// Command tweetstream prints objects from a Twitter stream to stdout, one per line.
//
// Credentials and connection settings come from TWEETSTREAM_* environment
// variables, or from a YAML file given with -config. Without -follow or -track
// the sample stream is used.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"

	tweetstream "github.com/anatolykoptev/go-tweetstream"
)

const (
	DefaultMaxRetries = 5
	DefaultRetryWait  = 2 * time.Second
	DefaultMaxWait    = 2 * time.Minute

	// Refused connection attempts (HTTP 420/429) back off from a minute.
	rateLimitedWait    = time.Minute
	rateLimitedMaxWait = 16 * time.Minute
)

// Exit codes.
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitAuthError = 3
)

type cmdFlags struct {
	config     string
	follow     string
	track      string
	limit      int64
	maxRetries int
	retryWait  time.Duration
	summary    bool
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (*cmdFlags, error) {
	f := &cmdFlags{}
	fs := flag.NewFlagSet("tweetstream", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML config file (default: environment)")
	fs.StringVar(&f.follow, "follow", "", "Comma-separated user ids to follow")
	fs.StringVar(&f.track, "track", "", "Comma-separated keywords to track")
	fs.Int64Var(&f.limit, "limit", 0, "Stop after this many objects (0 means no limit)")
	fs.IntVar(&f.maxRetries, "max-retries", DefaultMaxRetries, "Reconnect attempts after a connection error")
	fs.DurationVar(&f.retryWait, "retry-wait", DefaultRetryWait, "Initial wait before reconnecting")
	fs.BoolVar(&f.summary, "summary", false, "Print a one-line summary per object instead of raw JSON")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	level := slog.LevelInfo
	if flags.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	variant, err := buildVariant(flags.follow, flags.track)
	if err != nil {
		logger.Error("invalid stream parameters", slog.Any("error", err))
		return exitUsage
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		return exitUsage
	}
	cfg.Logger = logger

	client, err := tweetstream.NewClient(cfg)
	if err != nil {
		logger.Error("create client", slog.Any("error", err))
		return exitFailed
	}
	defer client.Close()

	p := &printer{w: stdout, summary: flags.summary, log: logger}
	return streamLoop(ctx, client, variant, flags, p, logger)
}

// streamLoop consumes sessions for variant until the limit is reached, ctx is
// done, the credentials are rejected or reconnect attempts run out.
func streamLoop(ctx context.Context, client *tweetstream.Client, variant tweetstream.Variant, flags *cmdFlags, p *printer, logger *slog.Logger) int {
	backoff := stealth.BackoffConfig{
		InitialWait: flags.retryWait,
		MaxWait:     DefaultMaxWait,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	limitedBackoff := stealth.BackoffConfig{
		InitialWait: rateLimitedWait,
		MaxWait:     rateLimitedMaxWait,
		Multiplier:  2.0,
		JitterPct:   0.1,
	}
	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig)
	endpoint := variant.Endpoint().Path

	var total int64
	failures := 0
	for {
		n, err := consume(ctx, client.NewSession(variant), p, flags.limit-total, flags.limit > 0)
		total += n
		if n > 0 {
			failures = 0
		}

		var authErr *tweetstream.AuthenticationError
		switch {
		case err == nil:
			return exitOK
		case ctx.Err() != nil:
			logger.Info("stream stopped", slog.Int64("count", total))
			return exitOK
		case errors.As(err, &authErr):
			logger.Error("credentials rejected", slog.Any("error", err))
			return exitAuthError
		}

		failures++
		if failures > flags.maxRetries {
			logger.Error("giving up on stream", slog.Int("attempts", failures), slog.Any("error", err))
			return exitFailed
		}
		wait := backoff.Duration(failures - 1)
		if tweetstream.IsRateLimited(err) {
			limiter.MarkRateLimited(endpoint, time.Now().Add(limitedBackoff.Duration(failures-1)))
		}
		if limiter.IsRateLimited(endpoint) {
			if until := time.Until(limiter.AvailableAt(endpoint)); until > wait {
				wait = until
			}
		}
		logger.Warn("stream interrupted, reconnecting",
			slog.Any("error", err),
			slog.Int("attempt", failures),
			slog.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			logger.Info("stream stopped", slog.Int64("count", total))
			return exitOK
		case <-time.After(wait):
		}
	}
}

// consume prints objects from s until it fails or, when limited, remaining
// objects have been printed. A nil error means the limit was reached.
func consume(ctx context.Context, s *tweetstream.Session, p *printer, remaining int64, limited bool) (int64, error) {
	defer s.Close()
	for obj, err := range s.All(ctx) {
		if err != nil {
			return s.Count(), err
		}
		p.print(obj)
		if limited && s.Count() >= remaining {
			return s.Count(), nil
		}
	}
	return s.Count(), nil
}

type printer struct {
	w       io.Writer
	summary bool
	log     *slog.Logger
}

func (p *printer) print(obj json.RawMessage) {
	if !p.summary {
		fmt.Fprintln(p.w, string(obj))
		return
	}
	switch kind := tweetstream.Classify(obj); kind {
	case tweetstream.MessageStatus:
		tweet, err := tweetstream.ParseStatus(obj)
		if err != nil {
			p.log.Debug("unparsable status", slog.Any("error", err))
			return
		}
		handle := tweet.AuthorID
		if tweet.Author != nil && tweet.Author.Handle != "" {
			handle = tweet.Author.Handle
		}
		fmt.Fprintf(p.w, "%s @%s: %s\n", tweet.ID, handle, strings.ReplaceAll(tweet.Text, "\n", " "))
	case tweetstream.MessageDelete:
		if d, err := tweetstream.ParseDelete(obj); err == nil {
			fmt.Fprintf(p.w, "delete %s\n", d.StatusID)
		}
	case tweetstream.MessageLimit:
		if l, err := tweetstream.ParseLimit(obj); err == nil {
			fmt.Fprintf(p.w, "limit %d undelivered\n", l.Undelivered)
		}
	default:
		fmt.Fprintf(p.w, "%s %s\n", kind, string(obj))
	}
}

func loadConfig(path string) (tweetstream.ClientConfig, error) {
	if path != "" {
		return tweetstream.LoadConfigFile(path)
	}
	return tweetstream.LoadConfig()
}

func buildVariant(follow, track string) (tweetstream.Variant, error) {
	switch {
	case follow != "" && track != "":
		return tweetstream.Variant{}, fmt.Errorf("-follow and -track are mutually exclusive")
	case follow != "":
		var ids []int64
		for _, part := range strings.Split(follow, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return tweetstream.Variant{}, fmt.Errorf("follow id %q: %w", part, err)
			}
			ids = append(ids, id)
		}
		return tweetstream.FollowUsers(ids...)
	case track != "":
		return tweetstream.TrackKeywords(strings.Split(track, ",")...)
	}
	return tweetstream.Sample(), nil
}
