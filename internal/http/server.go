// README: API gateway; builds the gin engine with middleware and delegates to module services.
package http

import (
	"expvar"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"yoake/internal/http/handlers"
	"yoake/internal/http/middleware"
	"yoake/internal/infra"
)

type ServerDeps struct {
	Orders    handlers.OrderService
	Carts     handlers.CartService
	Tables    handlers.TableService
	Registers handlers.RegisterService
	Settings  handlers.SettingsService
	Catalog   handlers.CatalogService
	Pricing   handlers.Quoter
	Boards    handlers.BoardHub
	// Verifier may be nil, which disables authentication.
	Verifier infra.TokenVerifier
	Log      *slog.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(s.deps.Log), middleware.Logging(s.deps.Log))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	engine.GET("/metrics", gin.WrapH(expvar.Handler()))

	api := engine.Group("/api", middleware.Auth(s.deps.Verifier))
	registerRoutes(api, s.deps)
	return engine
}
