package images

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestResolve_NoSource(t *testing.T) {
	r := &Resolver{}
	for _, src := range []string{"", "   ", "{logo}", "{"} {
		if _, err := r.Resolve(context.Background(), src); !errors.Is(err, ErrNoSource) {
			t.Errorf("Resolve(%q) error = %v, want ErrNoSource", src, err)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{"std", "data:image/png;base64,aGVsbG8=", "hello", false},
		{"raw std", "data:image/png;base64,aGVsbG8", "hello", false},
		{"url safe", "data:image/png;base64,-_8=", "\xfb\xff", false},
		{"line breaks", "data:image/png;base64,aGVs\nbG8=", "hello", false},
		{"upper case marker", "data:image/png;BASE64,aGVsbG8=", "hello", false},
		{"percent encoded", "data:image/svg+xml;utf8,%3Csvg%3E", "<svg>", false},
		{"no comma", "data:image/png;base64", "", true},
		{"garbage", "data:image/png;base64,***", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDataURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("DecodeDataURI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_DataURI(t *testing.T) {
	r := &Resolver{MaxSize: 4}
	if _, err := r.Resolve(context.Background(), "data:image/png;base64,aGVsbG8="); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Resolve() error = %v, want ErrTooLarge", err)
	}
	r.MaxSize = 0
	data, err := r.Resolve(context.Background(), " DATA:image/png;base64,aGVsbG8= ")
	if err != nil || string(data) != "hello" {
		t.Errorf("Resolve() = %q, %v", data, err)
	}
}

func TestResolve_HTTP(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 64)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/logo.png":
			if ua := req.Header.Get("User-Agent"); ua != "docgen-test" {
				http.Error(w, "bad agent "+ua, http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(payload)
		case "/slow.png":
			select {
			case <-req.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r := &Resolver{
		Client:    srv.Client(),
		UserAgent: "docgen-test",
		MaxSize:   1024,
		Log:       zaptest.NewLogger(t),
	}

	t.Run("ok", func(t *testing.T) {
		data, err := r.Resolve(context.Background(), srv.URL+"/logo.png")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !bytes.Equal(data, payload) {
			t.Errorf("Resolve() returned %d bytes, want %d", len(data), len(payload))
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), srv.URL+"/missing.png")
		if err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("Resolve() error = %v, want status error", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		small := *r
		small.MaxSize = 16
		if _, err := small.Resolve(context.Background(), srv.URL+"/logo.png"); !errors.Is(err, ErrTooLarge) {
			t.Errorf("Resolve() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		quick := *r
		quick.Timeout = 50 * time.Millisecond
		_, err := quick.Resolve(context.Background(), srv.URL+"/slow.png")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Resolve() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := r.Resolve(ctx, srv.URL+"/logo.png"); !errors.Is(err, context.Canceled) {
			t.Errorf("Resolve() error = %v, want context.Canceled", err)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := r.Resolve(context.Background(), "logo.png"); err == nil {
			t.Error("Resolve() expected error for relative reference")
		}
	})
}
