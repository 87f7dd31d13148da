package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-typeset/internal/render"
	"resume-typeset/internal/shared/config"
	"resume-typeset/internal/shared/metrics"
	"resume-typeset/internal/shared/server/middleware"
	"resume-typeset/internal/shared/server/respond"
)

// RouterDeps carries the wired handlers the router mounts.
type RouterDeps struct {
	Config        config.Config
	RenderHandler *render.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" && deps.Config.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/v1")
	api.Use(
		middleware.Identity(deps.Config.Env),
		middleware.RateLimit(renderRateLimits()),
	)
	registerMeRoutes(api)
	deps.RenderHandler.RegisterRoutes(api)

	return r
}

// renderRateLimits throttles compilation-heavy endpoints harder than cheap
// metadata reads.
func renderRateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"RENDER":  {Rate: 0.5, Burst: 3},
			"DEFAULT": {Rate: 10, Burst: 20},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && strings.HasSuffix(c.FullPath(), "/renders") {
				return "RENDER"
			}
			return "DEFAULT"
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
