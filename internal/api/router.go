// Package api serves the social network over HTTP
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"socialnet/internal/commandlog"
)

// Options configures the router
type Options struct {
	// ExportPath and ExportMode apply when an export request leaves them out
	ExportPath string
	ExportMode commandlog.ExportMode
	// Gatherer backs /metrics; nil omits the route
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter builds the gin engine serving svc
func NewRouter(svc NetworkService, opts Options) *gin.Engine {
	registerValidators()

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{
		svc:        svc,
		exportPath: opts.ExportPath,
		exportMode: opts.ExportMode,
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.GET("/users", h.listUsers)
		api.POST("/users", h.addUser)
		api.DELETE("/users/:username", h.removeUser)
		api.GET("/users/:username/friends", h.friendsOf)
		api.GET("/users/:username/component", h.componentOf)

		api.POST("/friendships", h.addFriendship)
		api.DELETE("/friendships", h.removeFriendship)

		api.GET("/mutual", h.mutualFriends)
		api.GET("/path", h.shortestPath)
		api.GET("/components", h.components)
		api.GET("/stats", h.stats)

		api.PUT("/central", h.setCentral)
		api.GET("/central", h.getCentral)

		api.GET("/log", h.logLines)
		api.POST("/log/load", h.loadLog)
		api.POST("/log/export", h.exportLog)

		api.GET("/snapshot", h.getSnapshot)
		api.PUT("/snapshot", h.putSnapshot)

		api.DELETE("/network", h.clear)
	}

	return router
}
