package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/register-api/pkg/errors"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(mw...)
	return engine
}

func do(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "client-abc-123")
	w = do(engine, req)
	assert.Equal(t, "client-abc-123", w.Header().Get(HeaderXRequestID))

	for _, bad := range []string{"has space", strings.Repeat("x", 65), "tab\there"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderXRequestID, bad)
		w = do(engine, req)
		assert.NotEqual(t, bad, w.Header().Get(HeaderXRequestID))
	}
}

func TestRequestIDContextLogger(t *testing.T) {
	buf := captureLog(t)

	engine := newEngine(RequestID())
	engine.GET("/", func(c *gin.Context) {
		log.Ctx(c.Request.Context()).Info().Msg("handling")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "client-abc-123")
	do(engine, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "client-abc-123", entry["request_id"])
	assert.Equal(t, "handling", entry["message"])
}

func TestLoggerNeverLogsBody(t *testing.T) {
	buf := captureLog(t)

	engine := newEngine(RequestID(), Logger(LoggerConfig{SkipPaths: []string{"/skip"}}))
	engine.POST("/check", func(c *gin.Context) {
		_, _ = io.ReadAll(c.Request.Body)
		c.Status(http.StatusOK)
	})
	engine.GET("/skip", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(engine, httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"password":"Hunter2!"}`)))
	do(engine, httptest.NewRequest(http.MethodGet, "/skip", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.NotContains(t, buf.String(), "Hunter2")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/check", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestErrorHandler(t *testing.T) {
	captureLog(t)

	engine := newEngine(RequestID(), ErrorHandler())
	engine.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperrors.BadRequest("seed is required", errors.New("empty")))
	})
	engine.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	engine.GET("/unavailable", func(c *gin.Context) {
		_ = c.Error(apperrors.Unavailable("keygen", context.DeadlineExceeded))
	})
	engine.GET("/written", func(c *gin.Context) {
		_ = c.Error(errors.New("ignored"))
		c.String(http.StatusTeapot, "short and stout")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/bad", http.StatusBadRequest, "seed is required"},
		{"/plain", http.StatusInternalServerError, "Internal Server Error"},
		{"/unavailable", http.StatusServiceUnavailable, "keygen unavailable"},
	}
	for _, tt := range tests {
		w := do(engine, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, w.Code, tt.path)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.code, resp.Code)
		assert.Equal(t, tt.message, resp.Message)
		assert.Equal(t, w.Header().Get(HeaderXRequestID), resp.TraceID)
	}

	w := do(engine, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

type validationRequest struct {
	Seed string `json:"seed" binding:"required,lowercase_words"`
}

func TestValidation(t *testing.T) {
	captureLog(t)

	config := DefaultValidationConfig()
	config.CustomValidators = map[string]validator.Func{
		"lowercase_words": func(fl validator.FieldLevel) bool {
			return strings.ToLower(fl.Field().String()) == fl.Field().String()
		},
	}
	config.CustomErrorMessages["lowercase_words"] = "Must be lowercase"

	engine := newEngine(ErrorHandler(), Validation(config))
	engine.POST("/", func(c *gin.Context) {
		var req validationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.BadRequest("invalid request", err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		body    string
		code    int
		message string
	}{
		{`{"seed":"knee door"}`, http.StatusNoContent, ""},
		{`{}`, http.StatusBadRequest, "Field is required"},
		{`{"seed":"Knee"}`, http.StatusBadRequest, "Must be lowercase"},
	}
	for _, tt := range tests {
		w := do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
		require.Equal(t, tt.code, w.Code, tt.body)
		if tt.message == "" {
			continue
		}

		var resp struct {
			Status string            `json:"status"`
			Errors []ValidationError `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, []ValidationError{{Field: "seed", Message: tt.message}}, resp.Errors)
	}

	// Syntax errors are not field errors and fall through to the error handler.
	w := do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"invalid request"`)
}

func TestRecovery(t *testing.T) {
	buf := captureLog(t)

	engine := newEngine(RequestID(), Recovery())
	engine.GET("/", func(c *gin.Context) { panic("kaboom") })

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "kaboom")
}

func TestCORS(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowOrigins = []string{"https://register.example.com"}
	engine := newEngine(CORS(config))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://register.example.com")
	w := do(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://register.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = do(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSizeLimit(t *testing.T) {
	config := DefaultSizeLimitConfig()
	config.MaxBodySize = 16
	engine := newEngine(SizeLimit(config))
	engine.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Unknown length is still capped while reading.
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 32))))
	req.ContentLength = -1
	w = do(engine, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSizeLimitUnsetFallsBackToDefaults(t *testing.T) {
	for _, config := range []SizeLimitConfig{{}, {MaxBodySize: -1, MaxHeaderSize: -1}} {
		engine := newEngine(SizeLimit(config))
		engine.POST("/", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusOK)
		})

		w := do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"Passw0rd"}`)))
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 65<<10))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	}
}

func TestTimeout(t *testing.T) {
	engine := newEngine(Timeout(TimeoutConfig{Duration: 10 * time.Millisecond}))
	engine.GET("/", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	w := do(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestSecurityHeadersAndNoStore(t *testing.T) {
	engine := newEngine(SecurityHeaders(DefaultSecurityConfig()))
	engine.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/secret", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(engine, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = do(engine, httptest.NewRequest(http.MethodGet, "/secret", nil))
	assert.Equal(t, "no-store, max-age=0", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	engine := newEngine(rl.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return do(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}
