package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetLogger() {
	global = nil
	once = sync.Once{}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"invalid level", "loud", "json", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()
			err := Init(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Init(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
			if !tt.wantErr && Level() != tt.wantLevel {
				t.Errorf("Level() = %v, want %v", Level(), tt.wantLevel)
			}
		})
	}
}

func TestInit_OnlyOnce(t *testing.T) {
	resetLogger()
	if err := Init("warn", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	first := L()
	if err := Init("debug", "console"); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if L() != first || Level() != zapcore.WarnLevel {
		t.Errorf("second Init() rebuilt the logger, level = %v", Level())
	}
}

func TestL_PanicsWithoutInit(t *testing.T) {
	resetLogger()

	defer func() {
		if r := recover(); r == nil {
			t.Error("L() should panic without Init()")
		}
	}()

	L()
}

func TestReplace(t *testing.T) {
	resetLogger()
	atomicLevel.SetLevel(zapcore.InfoLevel)

	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	Named("session").Info("wizard session created", zap.String("session_id", "s1"))
	Debug("dropped")
	restore()

	if global != nil {
		t.Error("restore() did not put back the previous logger")
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].LoggerName != "session" {
		t.Fatalf("observed entries = %+v, want one session entry", entries)
	}
	if got := entries[0].ContextMap()["session_id"]; got != "s1" {
		t.Errorf("session_id = %v, want s1", got)
	}
}

func TestWithFields(t *testing.T) {
	resetLogger()
	core, logs := observer.New(zapcore.DebugLevel)
	defer Replace(zap.New(core))()

	ctx := WithFields(context.Background(), zap.String("request_id", "req-1"))
	ctx = WithFields(ctx, zap.String("session_id", "s1"))
	From(ctx).Debug("wizard edit applied", zap.Strings("updaters", []string{"bootSourcePrefill"}))
	From(context.Background()).Info("no request")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("observed %d entries, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" || fields["session_id"] != "s1" {
		t.Errorf("request fields = %v", fields)
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Error("global logger carries request_id")
	}
}

func TestHTTPHandler(t *testing.T) {
	resetLogger()
	if err := Init("info", "json"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer atomicLevel.SetLevel(zapcore.InfoLevel)

	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"debug"}`))
	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /log/level status = %d, body %s", rec.Code, rec.Body.String())
	}
	if Level() != zapcore.DebugLevel {
		t.Errorf("Level() = %v after PUT, want debug", Level())
	}
}

func TestSync(t *testing.T) {
	resetLogger()

	if err := Sync(); err != nil {
		t.Errorf("Sync() on nil logger error = %v", err)
	}
}

func TestFrom_BeforeInit(t *testing.T) {
	resetLogger()

	ctx := WithFields(context.Background(), zap.String("request_id", "req-1"))
	From(ctx).Info("not recorded")
}
