package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/artesanato/pkg/response"
)

// Registry collects API-wide middleware and feature modules and mounts them
// under /api.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every module and answers unknown routes with the
// standard error envelope.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
	r.Engine.NoRoute(func(c *gin.Context) {
		response.Error[any](c, http.StatusNotFound, "route not found", nil)
	})
	r.Engine.GET("/healthz", func(c *gin.Context) {
		response.Success(c, http.StatusOK, map[string]any{"ok": true}, "healthy", nil)
	})
}

// Routes lists the mounted method/path pairs, for startup logging.
func (r *Registry) Routes() []string {
	infos := r.Engine.Routes()
	out := make([]string, 0, len(infos))
	for _, ri := range infos {
		out = append(out, ri.Method+" "+ri.Path)
	}
	return out
}
