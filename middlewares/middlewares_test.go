package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")
	os.Exit(m.Run())
}

func newUser(t *testing.T, store db.Store, role, status string) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Name:         "Ada",
		Email:        role + status + "@example.com",
		Role:         role,
		Status:       status,
		AuthProvider: models.ProviderEmail,
		SignupDate:   time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	token, err := utils.GenerateJWTToken(user.ID.Hex(), user.Email, user.Role, time.Hour)
	require.NoError(t, err)
	return user, token
}

func protectedRouter(store db.Store, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(store)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		session, _ := CurrentSession(c)
		c.JSON(http.StatusOK, gin.H{"email": session.Email, "role": session.Role})
	})
	r.GET("/private", handlers...)
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	store := db.NewMemoryStore()
	router := protectedRouter(store)
	_, token := newUser(t, store, models.RoleUser, models.StatusActive)
	_, suspended := newUser(t, store, models.RoleUser, models.StatusSuspended)
	_, deleted := newUser(t, store, models.RoleUser, models.StatusDeleted)

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer garbage").Code)
	assert.Equal(t, http.StatusForbidden, get(router, "Bearer "+suspended).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer "+deleted).Code)

	w := get(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "useractive@example.com")
}

func TestSessionFromTokenRejectsUnknownUser(t *testing.T) {
	store := db.NewMemoryStore()
	token, err := utils.GenerateJWTToken("64b7f0c2a1b2c3d4e5f60718", "ghost@example.com", models.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = SessionFromToken(context.Background(), store, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = SessionFromToken(context.Background(), store, "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRequireRole(t *testing.T) {
	store := db.NewMemoryStore()
	authz, err := NewLocalAuthorizer(nil)
	require.NoError(t, err)
	router := protectedRouter(store, authz.Require(ResourceUsers, ActionWrite))

	_, userToken := newUser(t, store, models.RoleUser, models.StatusActive)
	_, adminToken := newUser(t, store, models.RoleAdmin, models.StatusActive)

	assert.Equal(t, http.StatusForbidden, get(router, "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusOK, get(router, "Bearer "+adminToken).Code)

	ok, err := authz.Allowed(models.RoleAdmin, ResourceEmail, ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThrottle(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", Throttle(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, "xxx.xxx.113.9", fields["client_ip"])
}
