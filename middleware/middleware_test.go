package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"bvstock/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID"), "role": c.GetString("role")})
	})...)
	return r
}

func get(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	utils.InitJWT("mw-secret")
	admin, err := utils.GenerateToken("u1", "admin")
	require.NoError(t, err)
	staff, err := utils.GenerateToken("u2", "staff")
	require.NoError(t, err)

	r := newRouter(AuthMiddleware("admin"))

	assert.Equal(t, http.StatusUnauthorized, get(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Authorization", "Token "+admin).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Authorization", "Bearer garbage").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "Authorization", "Bearer "+staff).Code)

	w := get(r, "Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":"u1","role":"admin"}`, w.Body.String())

	w = get(r, "Cookie", "token="+admin)
	assert.Equal(t, http.StatusOK, w.Code)

	anyRole := newRouter(AuthMiddleware())
	assert.Equal(t, http.StatusOK, get(anyRole, "Authorization", "Bearer "+staff).Code)
}

func TestOptionalAuth(t *testing.T) {
	utils.InitJWT("mw-secret")
	token, err := utils.GenerateToken("u3", "staff")
	require.NoError(t, err)

	r := newRouter(OptionalAuth())

	w := get(r, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":"","role":""}`, w.Body.String())

	w = get(r, "Authorization", "Bearer "+token)
	assert.JSONEq(t, `{"userID":"u3","role":"staff"}`, w.Body.String())

	w = get(r, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := newRouter(RequestLogger(logger))

	w := get(r, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), `"status":200`)

	w = get(r, "", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_extra_total", Help: "test"})
	InitMetrics(reg, extra)

	r := newRouter(PrometheusMiddleware())
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200"))
	get(r, "", "")
	get(r, "", "")
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200"))
	assert.Equal(t, before+2, after)

	missBefore := testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	global := gin.New()
	global.Use(PrometheusMiddleware())
	w := httptest.NewRecorder()
	global.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/path", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, missBefore+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")))

	n, err := testutil.GatherAndCount(reg, "bvstock_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, n)

	n, err = testutil.GatherAndCount(reg, "test_extra_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
