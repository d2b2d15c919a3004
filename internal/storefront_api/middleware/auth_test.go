package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/auth"
)

type stubVerifier struct {
	principal shared.Principal
	err       error
	seen      string
}

func (s *stubVerifier) Verify(token string) (shared.Principal, error) {
	s.seen = token
	return s.principal, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	accountID := uuid.New()

	tests := []struct {
		name       string
		header     string
		verifier   *stubVerifier
		wantStatus int
	}{
		{"missing header", "", &stubVerifier{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &stubVerifier{}, http.StatusUnauthorized},
		{"empty token", "Bearer  ", &stubVerifier{}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", &stubVerifier{err: errors.New("expired")}, http.StatusUnauthorized},
		{"valid token", "bearer good", &stubVerifier{principal: shared.Principal{AccountID: accountID, IsAdmin: true}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CorrelationID(), Authenticate(discardLogger(), tt.verifier))

			var fromGin, fromCtx shared.Principal
			router.GET("/me", func(c *gin.Context) {
				fromGin, _ = PrincipalFrom(c)
				fromCtx, _ = auth.PrincipalFromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req, _ := http.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "good", tt.verifier.seen)
				assert.Equal(t, accountID, fromGin.AccountID)
				assert.True(t, fromCtx.IsAdmin)
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body["error"])
			assert.NotEmpty(t, body["correlation_id"])
		})
	}
}
