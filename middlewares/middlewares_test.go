package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(secret string) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		userID, isAdmin, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "isAdmin": isAdmin, "ok": ok})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	token, err := utils.IssueToken("secret", &models.User{ID: 7, Email: "w@example.com", IsAdmin: true}, time.Hour, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			protectedRouter("secret").ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.status == http.StatusOK {
				assert.Equal(t, float64(7), body["userId"])
				assert.Equal(t, true, body["isAdmin"])
				return
			}
			envelope := body["error"].(map[string]any)
			assert.Equal(t, float64(tt.status), envelope["status"])
			assert.NotEmpty(t, envelope["message"])
		})
	}
}

func TestRateLimiter_PerClientIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.POST("/checkout", limiter.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.getLimiter("10.0.0.1")

	now = now.Add(visitorIdleTTL + time.Second)
	limiter.getLimiter("10.0.0.2")

	assert.NotContains(t, limiter.visitors, "10.0.0.1")
	assert.Contains(t, limiter.visitors, "10.0.0.2")
}

func TestPrometheusMiddleware_CountsRequests(t *testing.T) {
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200"))

	assert.Equal(t, before+1, after)
}

func TestRecordProviderCall(t *testing.T) {
	before := testutil.ToFloat64(providerCalls.WithLabelValues("create_customer", "error"))
	RecordProviderCall("create_customer", errors.New("503"))
	assert.Equal(t, before+1, testutil.ToFloat64(providerCalls.WithLabelValues("create_customer", "error")))
}
