package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/artesanato/internal/interface/http"
	"github.com/oksasatya/artesanato/internal/interface/middleware"
	"github.com/oksasatya/artesanato/pkg/helpers"
)

// ItemModule serves /pecas. Every route needs a valid session.
type ItemModule struct {
	Handler *handlers.ItemHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewItemModule(h *handlers.ItemHandler, jwt *helpers.JWTManager, rdb *redis.Client) *ItemModule {
	return &ItemModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *ItemModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/pecas")
	g.Use(
		middleware.Auth(m.Redis, m.JWT),
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	uploadLimiter := middleware.RateLimit(m.Redis, 20, time.Minute, middleware.KeyByUserID(), nil)
	{
		g.GET("", m.Handler.Search)
		g.GET("/busca", m.Handler.TextSearch)
		g.POST("", m.Handler.Create)
		g.GET("/:id", m.Handler.Get)
		g.PUT("/:id", m.Handler.Update)
		g.PUT("/:id/atualiza-status", m.Handler.UpdateStatus)
		g.DELETE("/:id", m.Handler.Delete)
		g.POST("/:id/foto", uploadLimiter, m.Handler.UploadPhoto)
	}
}
