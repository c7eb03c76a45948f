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

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestDomainGroup_RegisterRoutes(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("stores", "/stores/:store_id")
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "stores")
		c.Next()
	})
	g.GET("/a", func(c *gin.Context) { c.String(http.StatusOK, "a "+c.Param("store_id")) }).
		POST("/b", func(c *gin.Context) { c.String(http.StatusCreated, "b") }).
		PUT("/c/:id", func(c *gin.Context) { c.String(http.StatusOK, "c "+c.Param("id")) })
	g.Group("pnl", "/pnl").GET("", func(c *gin.Context) { c.String(http.StatusOK, "pnl") })

	NewRouter(engine).Register(g).Setup()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/v1/stores/s1/a", http.StatusOK, "a s1"},
		{http.MethodPost, "/api/v1/stores/s1/b", http.StatusCreated, "b"},
		{http.MethodPut, "/api/v1/stores/s1/c/7", http.StatusOK, "c 7"},
		{http.MethodGet, "/api/v1/stores/s1/pnl", http.StatusOK, "pnl"},
		{http.MethodGet, "/api/v1/stores/s1/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
				assert.Equal(t, "stores", w.Header().Get("X-Group"))
			}
		})
	}
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("stores", "/stores/:store_id")
	g.GET("/stock-valuation", nil)
	g.Group("pnl", "/pnl").GET("", nil).GET("/trend", nil)

	assert.Equal(t, []Route{
		{Method: http.MethodGet, Path: "/api/v1/stores/:store_id/stock-valuation"},
		{Method: http.MethodGet, Path: "/api/v1/stores/:store_id/pnl"},
		{Method: http.MethodGet, Path: "/api/v1/stores/:store_id/pnl/trend"},
	}, g.Routes("/api/v1"))
	assert.Equal(t, "stores", g.Name())
	assert.Equal(t, "/stores/:store_id", g.Prefix())
}
