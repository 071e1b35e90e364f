package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	newRouter := func() *gin.Engine {
		r := gin.New()
		r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"employee_id": c.GetString(middleware.ContextEmployeeID),
				"actor":       contextutil.GetActorID(c.Request.Context()),
				"role":        c.GetString(middleware.ContextRole),
			})
		})
		return r
	}

	t.Run("valid bearer token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"employee_id": "emp-1", "role": "manager", "exp": time.Now().Add(time.Hour).Unix()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"employee_id":"emp-1","actor":"emp-1","role":"manager"}`, w.Body.String())
	})

	t.Run("token in query for event streams", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"employee_id": "emp-2"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)

		newRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	cases := []struct {
		name   string
		header string
		code   string
		msg    string
	}{
		{"missing token", "", "UNAUTHORIZED", "Token not found"},
		{"garbage token", "Bearer abc.def.ghi", "UNAUTHORIZED", "Invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			newRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.msg)
		})
	}

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"employee_id": "emp-1", "exp": time.Now().Add(-time.Minute).Unix()})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		newRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token expired")
	})

	t.Run("missing employee claim", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": "u-1"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		newRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Employee ID not found in token")
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/rid", middleware.RequestID(), func(c *gin.Context) {
		c.String(http.StatusOK, contextutil.GetRequestID(c.Request.Context()))
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "inbound id kept", header: "req-abc-123", keep: true},
		{name: "missing id generated", header: ""},
		{name: "oversized id replaced", header: strings.Repeat("a", 65)},
		{name: "id with spaces replaced", header: "req abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}

			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			assert.Equal(t, got, w.Body.String())
			if tc.keep {
				assert.Equal(t, tc.header, got)
			} else {
				assert.NotEqual(t, tc.header, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestRateLimitByUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		c.Set(middleware.ContextEmployeeID, c.GetHeader("X-Employee"))
		c.Next()
	}, middleware.RateLimitByUser(rate.Every(time.Hour), 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(emp string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Employee", emp)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("a"))
	assert.Equal(t, http.StatusTooManyRequests, do("a"))
	assert.Equal(t, http.StatusOK, do("b"))
	assert.Equal(t, http.StatusOK, do(""))
	assert.Equal(t, http.StatusOK, do(""))
}

func TestIdempotency(t *testing.T) {
	const (
		cacheKey = "idemp:/leaves:emp-1:key-1"
		lockKey  = cacheKey + ":lock"
		payload  = `{"status":201,"body":{"ok":true}}`
	)

	newRouter := func(rdb gin.HandlerFunc, calls *int) *gin.Engine {
		r := gin.New()
		r.POST("/leaves", func(c *gin.Context) {
			c.Set(middleware.ContextEmployeeID, "emp-1")
			c.Next()
		}, rdb, func(c *gin.Context) {
			*calls++
			c.Data(http.StatusCreated, "application/json", []byte(`{"ok":true}`))
		})
		return r
	}

	t.Run("first call stores response", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
		mock.ExpectSet(cacheKey, []byte(payload), 24*time.Hour).SetVal("OK")
		mock.ExpectDel(lockKey).SetVal(1)

		calls := 0
		r := newRouter(middleware.Idempotency(client, zap.NewNop()), &calls)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leaves", nil)
		req.Header.Set(middleware.IdempotencyHeader, "key-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replay skips handler", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).SetVal(payload)

		calls := 0
		r := newRouter(middleware.Idempotency(client, zap.NewNop()), &calls)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leaves", nil)
		req.Header.Set(middleware.IdempotencyHeader, "key-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replay"))
		assert.Equal(t, 0, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("in flight duplicate is rejected", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		calls := 0
		r := newRouter(middleware.Idempotency(client, zap.NewNop()), &calls)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leaves", nil)
		req.Header.Set(middleware.IdempotencyHeader, "key-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, calls)
	})
}
