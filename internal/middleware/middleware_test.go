package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// newEngine returns a gin engine in release mode with the middleware and a single GET /ping route.
func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	return router
}

// runTest executes a GET request against the engine and returns the response.
func runTest(router *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/ping", nil)
	for k, v := range header {
		request.Header[k] = v
	}
	router.ServeHTTP(recorder, request)
	return recorder
}

// TestRequestIDGenerated expects a fresh id in the context and on the response.
func TestRequestIDGenerated(t *testing.T) {
	recorder := runTest(newEngine(RequestID()), nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	rid := recorder.Header().Get("X-Request-Id")
	assert.NotEmpty(t, rid)
	assert.Equal(t, rid, recorder.Body.String())
}

// TestRequestIDPassedThrough expects the id of the caller to be kept.
func TestRequestIDPassedThrough(t *testing.T) {
	recorder := runTest(newEngine(RequestID()), http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", recorder.Header().Get("X-Request-Id"))
	assert.Equal(t, "abc-123", recorder.Body.String())
}

// TestRequestLogger expects one log entry with the status and the request id.
func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := newEngine(RequestID(), RequestLogger(zap.New(core)))

	runTest(router, http.Header{"X-Request-Id": {"abc-123"}})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "request completed", entries[0].Message)
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "/ping", fields["path"])
		assert.Equal(t, "abc-123", fields["request_id"])
	}
}

// TestRateLimit expects requests beyond the burst to be answered with TOO MANY REQUESTS.
func TestRateLimit(t *testing.T) {
	router := newEngine(RateLimit(0.001, 2))
	assert.Equal(t, http.StatusOK, runTest(router, nil).Code)
	assert.Equal(t, http.StatusOK, runTest(router, nil).Code)
	recorder := runTest(router, nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.JSONEq(t, `{"message": "too many requests"}`, recorder.Body.String())
}

// TestCORS expects the allow origin header for a configured origin only.
func TestCORS(t *testing.T) {
	router := newEngine(CORS([]string{"http://localhost:3000"}))

	allowed := runTest(router, http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, "http://localhost:3000", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := runTest(router, http.Header{"Origin": {"http://evil.example.com"}})
	assert.Equal(t, http.StatusForbidden, denied.Code)
}
