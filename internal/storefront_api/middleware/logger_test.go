package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/gamevault-settlement/internal/domain/shared"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(buf *bytes.Buffer) *gin.Engine {
		logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Logger(logger))
		return router
	}

	t.Run("LogsRequestDetails", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)
		accountID := uuid.New()
		router.GET("/items/:id", func(c *gin.Context) {
			c.Set(PrincipalKey, shared.Principal{AccountID: accountID})
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/items/42?expand=true", nil)
		req.Header.Set(CorrelationIDHeader, "corr-log")
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, `"level":"INFO"`)
		assert.Contains(t, out, `"msg":"HTTP request"`)
		assert.Contains(t, out, `"path":"/items/42?expand=true"`)
		assert.Contains(t, out, `"route":"/items/:id"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"correlation_id":"corr-log"`)
		assert.Contains(t, out, `"account_id":"`+accountID.String()+`"`)
	})

	t.Run("LevelFollowsStatus", func(t *testing.T) {
		tests := []struct {
			status int
			level  string
		}{
			{http.StatusBadRequest, `"level":"WARN"`},
			{http.StatusBadGateway, `"level":"ERROR"`},
		}
		for _, tt := range tests {
			var buf bytes.Buffer
			router := newRouter(&buf)
			router.GET("/status", func(c *gin.Context) { c.Status(tt.status) })

			req, _ := http.NewRequest(http.MethodGet, "/status", nil)
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Contains(t, buf.String(), tt.level)
		}
	})
}
