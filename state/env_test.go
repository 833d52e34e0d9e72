package state

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextWithEnv_Isolated(t *testing.T) {
	first := EnvFromContext(ContextWithEnv(context.Background()))
	second := EnvFromContext(ContextWithEnv(context.Background()))

	if first == second {
		t.Fatal("every context must get its own environment")
	}
	if first.Client == nil || first.Client == second.Client {
		t.Error("every environment must get its own HTTP client")
	}
	if first.NoDirs || first.Overwrite {
		t.Errorf("generate flags must be off by default, got nodirs=%v overwrite=%v", first.NoDirs, first.Overwrite)
	}
}

func TestEnvFromContext_Derived(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	env.Overwrite = true

	derived, cancel := context.WithCancel(ctx)
	defer cancel()
	if got := EnvFromContext(derived); got != env || !got.Overwrite {
		t.Error("derived context must carry the same environment")
	}
}

func TestEnvFromContext_Missing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("EnvFromContext() without environment must panic")
		}
	}()
	EnvFromContext(context.Background())
}

func TestNewLocalEnv_Client(t *testing.T) {
	env := newLocalEnv()

	tr, ok := env.Client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Client.Transport = %T, want *http.Transport", env.Client.Transport)
	}
	if tr == http.DefaultTransport {
		t.Error("client must not share the default transport")
	}
	if tr.MaxIdleConnsPerHost != 8 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 8", tr.MaxIdleConnsPerHost)
	}
	// per request limits come from image configuration
	if env.Client.Timeout != 0 {
		t.Errorf("Client.Timeout = %v, want none", env.Client.Timeout)
	}
}

func TestLocalEnv_ClientReusedBetweenRequests(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("logo"))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	env := newLocalEnv()
	for range 3 {
		resp, err := env.Client.Get(srv.URL + "/logo.png")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if n := conns.Load(); n != 1 {
		t.Errorf("connections = %d, want 1", n)
	}
}

func TestLocalEnv_StdLog(t *testing.T) {
	t.Run("no logger", func(t *testing.T) {
		env := newLocalEnv()
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("redirect without logger must do nothing")
		}
		env.RestoreStdLog()
	})

	t.Run("redirect and restore", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		env := newLocalEnv()
		env.Log = zap.New(core)

		env.RedirectStdLog()
		if env.restoreStdLog == nil {
			t.Fatal("restore function not kept")
		}
		log.Print("fetching logo")

		env.RestoreStdLog()
		if env.restoreStdLog != nil {
			t.Error("restore function must be reset")
		}
		if logs.Len() != 1 || logs.All()[0].Message != "fetching logo" {
			t.Errorf("captured = %v, want single redirected entry", logs.AllUntimed())
		}
		// second restore is harmless
		env.RestoreStdLog()
	})
}
