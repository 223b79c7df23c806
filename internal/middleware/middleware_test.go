package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/models"
	"rentals_backend/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.Init("middleware-test-secret", 15*time.Minute)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_RejectsMissingHeader(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsGarbageToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	token, err := auth.GenerateToken("user-1", string(models.UserRoleRenter))
	require.NoError(t, err)

	var actor auth.Actor
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		actor = GetActor(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, models.UserRoleRenter, actor.Role)
}

func TestOptionalAuthMiddleware_AnonymousPassesThrough(t *testing.T) {
	var userID string
	r := gin.New()
	r.GET("/x", OptionalAuthMiddleware(), func(c *gin.Context) {
		userID = GetUserID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer broken")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
	assert.Empty(t, userID)
}

func TestRequireRoles(t *testing.T) {
	seeker, _ := auth.GenerateToken("s-1", string(models.UserRoleSeeker))
	admin, _ := auth.GenerateToken("a-1", string(models.UserRoleAdmin))

	r := gin.New()
	r.GET("/admin", AuthMiddleware(), RequireRoles(models.UserRoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+seeker)
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://rentals.example"}))
	r.POST("/api", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://rentals.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://rentals.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://rentals.example"}))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/apartments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := telemetry.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/apartments/:id", "200")
	before := testutil.ToFloat64(counter)

	serve(r, httptest.NewRequest(http.MethodGet, "/apartments/abc", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/apartments/def", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRequestIDMiddleware_EchoesIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	assert.Equal(t, "req-42", serve(r, req).Header().Get("X-Request-ID"))

	assert.NotEmpty(t, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Request-ID"))
}

func TestRateLimitMiddleware_DisabledWithoutLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitMiddleware(nil, "auth", 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
}
