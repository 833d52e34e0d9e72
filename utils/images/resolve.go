package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoSource is returned for image references which cannot be fetched at
// all: empty or still holding a placeholder.
var ErrNoSource = errors.New("image has no source")

// ErrTooLarge is returned when fetched data exceeds Resolver.MaxSize.
var ErrTooLarge = errors.New("image is too large")

// Resolver loads image data referenced by <img src>: data URIs are decoded in
// place, everything else is fetched over HTTP.
type Resolver struct {
	Client    *http.Client
	UserAgent string
	MaxSize   int64         // 0 means no limit
	Timeout   time.Duration // per fetch, 0 means client default
	Log       *zap.Logger
}

func (r *Resolver) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Resolve returns raw image bytes for src.
func (r *Resolver) Resolve(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "{") {
		return nil, ErrNoSource
	}
	if len(src) > 5 && strings.EqualFold(src[:5], "data:") {
		data, err := DecodeDataURI(src)
		if err != nil {
			return nil, err
		}
		if r.MaxSize > 0 && int64(len(data)) > r.MaxSize {
			return nil, fmt.Errorf("data uri: %w (%d bytes)", ErrTooLarge, len(data))
		}
		return data, nil
	}
	return r.fetch(ctx, src)
}

func (r *Resolver) fetch(ctx context.Context, src string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request for %q: %w", src, err)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %q: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unable to fetch %q: unexpected status %s", src, resp.Status)
	}

	body := io.Reader(resp.Body)
	if r.MaxSize > 0 {
		body = io.LimitReader(resp.Body, r.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", src, err)
	}
	if r.MaxSize > 0 && int64(len(data)) > r.MaxSize {
		return nil, fmt.Errorf("%q: %w (over %d bytes)", src, ErrTooLarge, r.MaxSize)
	}

	r.logger().Debug("Image fetched",
		zap.String("url", src),
		zap.Int("size", len(data)),
		zap.String("content-type", resp.Header.Get("Content-Type")),
		zap.Duration("elapsed", time.Since(start)))
	return data, nil
}

// DecodeDataURI returns payload of "data:" URI. Base64 payloads are accepted
// in standard and URL-safe alphabets, padded or not. Other payloads are
// percent-decoded.
func DecodeDataURI(uri string) ([]byte, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, errors.New("malformed data uri: no payload")
	}
	if !strings.HasSuffix(strings.ToLower(header), ";base64") {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		return []byte(s), nil
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, payload)

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("malformed data uri: %w", lastErr)
}
