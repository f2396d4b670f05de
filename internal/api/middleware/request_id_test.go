package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

func TestRequestID_ReplacesUnusableHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"client id kept", "wizard-7f3a", true},
		{"space", "two words", false},
		{"non-ascii", "réq", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestID())
			var seen string
			router.GET("/", func(c *gin.Context) {
				seen = GetRequestID(c.Request.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			router.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.header) != tt.keep {
				t.Errorf("request id = %q for header %q, keep = %v", seen, tt.header, tt.keep)
			}
			if seen == "" {
				t.Error("no request id generated")
			}
		})
	}
}

func TestSessionFields_TagRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer logger.Replace(zap.New(core))()

	router := gin.New()
	router.Use(RequestID(), ErrorHandler())
	ws := router.Group("/wizard/sessions", SessionFields())
	ws.PUT("/:id/storages", func(c *gin.Context) {
		logger.From(c.Request.Context()).Debug("wizard edit applied",
			zap.Strings("updaters", []string{"bootSourcePrefill", "diskBusConformance"}))
		_ = c.Error(apperrors.ErrSessionNotFoundf(c.Param("id")))
	})

	req := httptest.NewRequest(http.MethodPut, "/wizard/sessions/s-42/storages", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	router.ServeHTTP(httptest.NewRecorder(), req)

	for _, msg := range []string{"wizard edit applied", "Request error"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("%q logged %d times, want 1", msg, len(entries))
		}
		fields := entries[0].ContextMap()
		if fields["request_id"] != "req-9" || fields["session_id"] != "s-42" {
			t.Errorf("%q fields = %v, want request_id req-9 and session_id s-42", msg, fields)
		}
	}
	updaters := logs.FilterMessage("wizard edit applied").All()[0].ContextMap()["updaters"]
	if got, ok := updaters.([]interface{}); !ok || len(got) != 2 {
		t.Errorf("updaters field = %#v", updaters)
	}
}
