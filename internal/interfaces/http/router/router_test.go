package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		c.Header("X-API", "yes")
	}))

	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.RegisterRoot(NewDomainGroup("probe", "").GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	}))
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-API"))

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-API"))

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/ping").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("orders", "/orders")
		assert.Equal(t, "orders", g.Name())
		assert.Equal(t, "/orders", g.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("test", "/test").
			GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) }).
			POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) }).
			PATCH("/items/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) }).
			RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/test/items").Code)
		assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/test/items").Code)
		assert.Equal(t, http.StatusAccepted, serve(engine, http.MethodPatch, "/api/v1/test/items/1").Code)
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodDelete, "/api/v1/test/items/1").Code)
	})

	t.Run("middleware is scoped to the group", func(t *testing.T) {
		engine := gin.New()
		api := engine.Group("/api/v1")

		outer := NewDomainGroup("auth", "/auth").
			POST("/token", func(c *gin.Context) { c.Status(http.StatusOK) })
		outer.Group("auth-admin", "").
			Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }).
			POST("/revoke", func(c *gin.Context) { c.Status(http.StatusOK) })
		outer.RegisterRoutes(api)

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/auth/token").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodPost, "/api/v1/auth/revoke").Code)
	})

	t.Run("empty path maps to the prefix", func(t *testing.T) {
		engine := gin.New()
		NewDomainGroup("orders", "/orders").
			GET("", func(c *gin.Context) { c.String(http.StatusOK, "list") }).
			RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/orders")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "list", w.Body.String())
	})
}
