package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"user-directory-service/internal/adapter/cache"
	"user-directory-service/internal/adapter/db/postgres"
	"user-directory-service/internal/adapter/events"
	"user-directory-service/internal/adapter/gin/handler"
	"user-directory-service/internal/adapter/gin/middleware"
	"user-directory-service/internal/adapter/repository/cached"
	"user-directory-service/internal/usecase/user"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	redis  *redis.Client
	mr     *miniredis.Miniredis
}

func setupEnv(t *testing.T, limiter middleware.RateLimiterConfig) *testEnv {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&postgres.UserSchema{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := cached.NewCachedUserRepository(
		postgres.NewUserRepoPG(db, log),
		cache.NewRedisUserCache(client, time.Minute, log),
		log,
	)
	uc := user.New(repo, events.NewPublisher(client, events.DefaultStream), log)
	rl := middleware.NewRateLimiter(client, limiter, log)

	return &testEnv{
		router: SetupRouter(handler.NewUserHandler(uc, log), rl, log),
		db:     db,
		redis:  client,
		mr:     mr,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var out map[string]any
	if w.Body.Len() > 0 && json.Valid(w.Body.Bytes()) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func userOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	u, ok := body["user"].(map[string]any)
	require.True(t, ok, "body has a user object: %v", body)
	return u
}

func usersOf(t *testing.T, body map[string]any) []any {
	t.Helper()
	u, ok := body["users"].([]any)
	require.True(t, ok, "body has a users array: %v", body)
	return u
}

func TestUserLifecycle(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	code, body := env.do(t, http.MethodPost, "/user", map[string]any{
		"name": "Ana", "email": "ana@x.com", "age": 30, "state": "SP", "city": "SP",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, handler.MsgUserCreated, body["message"])
	ana := userOf(t, body)
	assert.Equal(t, float64(1), ana["id"])
	assert.Equal(t, float64(30), ana["age"])

	code, body = env.do(t, http.MethodPost, "/user", map[string]any{"name": "Ana Two", "email": "ana@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user with this email already exists", body["error"])

	code, body = env.do(t, http.MethodPost, "/user", map[string]any{"name": "Anabela", "email": "anabela@x.com"})
	require.Equal(t, http.StatusCreated, code)
	assert.Nil(t, userOf(t, body)["age"])

	code, body = env.do(t, http.MethodGet, "/users/name/An", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, usersOf(t, body), 2)

	code, _ = env.do(t, http.MethodGet, "/users/name/Zed", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(t, http.MethodGet, "/user/email/anabela@x.com", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(2), userOf(t, body)["id"])

	code, body = env.do(t, http.MethodPut, "/user/1", map[string]any{
		"name": "Ana", "email": "ana@x.com", "age": 99, "state": "RJ", "city": "Niteroi",
	})
	require.Equal(t, http.StatusCreated, code)
	updated := userOf(t, body)
	assert.Equal(t, float64(30), updated["age"], "age is never updated")
	assert.Equal(t, "RJ", updated["state"])

	code, body = env.do(t, http.MethodPut, "/user/1", map[string]any{"name": "Ana", "email": "anabela@x.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user with this email already exists", body["error"])

	code, body = env.do(t, http.MethodGet, "/user/1", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "ana@x.com", userOf(t, body)["email"])

	code, body = env.do(t, http.MethodDelete, "/user/1", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, handler.MsgUserDeleted, body["message"])
	assert.Equal(t, "Niteroi", userOf(t, body)["city"])

	code, _ = env.do(t, http.MethodGet, "/user/1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodDelete, "/user/1", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, usersOf(t, body), 1)

	stream, err := env.redis.XLen(t.Context(), events.DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stream, "two creates, one update, one delete")
}

func TestNonNumericID(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		code, body := env.do(t, method, "/user/abc", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, body["error"])
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	code, body := env.do(t, http.MethodPut, "/user/42", map[string]any{"name": "Ghost", "email": "ghost@x.com"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "user not found", body["error"])
}

func TestListUsers(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	code, body := env.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Empty(t, usersOf(t, body))

	require.NoError(t, env.db.Migrator().DropTable(&postgres.UserSchema{}))

	code, body = env.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["error"])
}

func TestCreateMissingEmail(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	code, body := env.do(t, http.MethodPost, "/user", map[string]any{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "Email is required")
}

func TestRedisOutageDoesNotFailRequests(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: true, RequestsPerSecond: 1, BurstCapacity: 1})
	env.mr.Close()

	code, _ := env.do(t, http.MethodPost, "/user", map[string]any{"name": "Ana", "email": "ana@x.com"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = env.do(t, http.MethodGet, "/user/1", nil)
	assert.Equal(t, http.StatusCreated, code)
}

func TestRateLimit(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 2})

	for i := 0; i < 2; i++ {
		code, _ := env.do(t, http.MethodGet, "/users", nil)
		assert.Equal(t, http.StatusCreated, code)
	}
	code, body := env.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body["error"], "rate limit exceeded")

	code, _ = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code, "health is not rate limited")
}

func TestHealthAndDocs(t *testing.T) {
	env := setupEnv(t, middleware.RateLimiterConfig{Enabled: false})

	code, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, ServiceName, body["service"])

	code, body = env.do(t, http.MethodGet, "/openapi.json", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3.0.3", body["openapi"])

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger")
}
