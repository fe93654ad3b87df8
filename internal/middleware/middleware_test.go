package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/config"
	"github.com/iliyamo/webseries-catalog/internal/logging"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/repository/memory"
	"github.com/iliyamo/webseries-catalog/internal/service"
	"github.com/iliyamo/webseries-catalog/internal/utils"
)

const secret = "mw-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func bearer(t *testing.T, viewerID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, viewerID, "a@example.com", "customer", time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	mw := JWTAuth(secret)
	var seen uint64
	h := mw(func(c echo.Context) error {
		seen, _ = ViewerID(c)
		return c.NoContent(http.StatusNoContent)
	})

	for name, header := range map[string]string{
		"missing":   "",
		"scheme":    "Basic abc",
		"garbage":   "Bearer not-a-token",
		"wrong key": "Bearer " + mustToken(t, "other-secret", 1),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())
			assert.True(t, apperr.Is(h(c), apperr.KindUnauthenticated))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 42))
	c := echo.New().NewContext(req, httptest.NewRecorder())
	require.NoError(t, h(c))
	assert.Equal(t, uint64(42), seen)
	claims, ok := Claims(c)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", claims.Email)
}

func mustToken(t *testing.T, key string, id uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(key, id, "x@example.com", "admin", time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestRequireRoleUsesStoredRole(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	country := store.SeedCountry("Norway")
	id, err := store.InsertViewer(ctx, model.Viewer{Email: "a@example.com", FirstName: "Ada", Role: model.RoleCustomer, CountryID: country})
	require.NoError(t, err)
	gate := service.NewGate(store)

	h := JWTAuth(secret)(RequireRole(gate, model.StaffRoles)(func(c echo.Context) error {
		role, _ := CurrentRole(c)
		return c.String(http.StatusOK, role.String())
	}))
	call := func() (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, bearer(t, id))
		rec := httptest.NewRecorder()
		return rec, h(echo.New().NewContext(req, rec))
	}

	_, err = call()
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	store.SetRole(id, model.RoleEmployee)
	rec, err := call()
	require.NoError(t, err)
	assert.Equal(t, "employee", rec.Body.String())
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip", Prefix: "rl:test",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, logging.Discard()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", nil).Code)
	second := serve(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	blocked := serve(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), `"error"`)
}

func TestTokenBucketUserKeysSeeIdentifiedViewer(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "user", Prefix: "rl:user",
	}
	e := echo.New()
	e.Use(Identify(secret), NewTokenBucket(cfg, rdb, logging.Discard()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	ana := http.Header{echo.HeaderAuthorization: {bearer(t, 1)}}
	ben := http.Header{echo.HeaderAuthorization: {bearer(t, 2)}}

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", ana).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/ping", ana).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", ben).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", nil).Code, "anonymous bucket is separate")
}

func TestIdentifyNeverRejects(t *testing.T) {
	e := echo.New()
	e.Use(Identify(secret))
	e.GET("/who", func(c echo.Context) error { return c.String(http.StatusOK, subject(c)) })

	rec := serve(e, http.MethodGet, "/who", http.Header{echo.HeaderAuthorization: {"Bearer garbage"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon", rec.Body.String())

	rec = serve(e, http.MethodGet, "/who", http.Header{echo.HeaderAuthorization: {bearer(t, 42)}})
	assert.Equal(t, "42", rec.Body.String())
}

func TestTokenBucketWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, logging.Discard()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", nil).Code)
	}
}

func TestRedisCacheHitAndPurge(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: []string{"GET"}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}
	log := logging.Discard()

	calls := 0
	e := echo.New()
	e.Use(PurgeCacheOnWrite(cfg, rdb, log))
	e.GET("/series/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
	}, NewRedisCache(cfg, rdb, log))
	e.POST("/series", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	first := serve(e, http.MethodGet, "/series/1", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	hit := serve(e, http.MethodGet, "/series/1", nil)
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), hit.Body.String())
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/series/2", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Len(t, mr.Keys(), 2)

	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/series", nil).Code)
	assert.Empty(t, mr.Keys())
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/series/1", nil).Header().Get("X-Cache"))
}

func TestPayloadRoundTripRejectsTruncated(t *testing.T) {
	bs, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, "{}", string(body))

	_, _, _, ok = decodePayload(bs[:9])
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := serve(e, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/boom", entry.Data["route"])
	assert.Equal(t, "anon", entry.Data["viewer_id"])
}
