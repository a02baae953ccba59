package main

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	mw "github.com/Rupe88/japan-project/pkg/apihelpers/middlewares"
)

func main() {
	classifier, err := mw.NewRouteClassifier(conf.PublicRoutes, conf.PublicGetPrefixes)
	if err != nil {
		slog.Error("invalid public route configuration", slog.String("error", err.Error()))
		return
	}

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(mw.GatewayAuth(classifier, conf.AccessTokenSignKey))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, upstream := range conf.Upstreams {
		target, err := url.Parse(upstream.Target)
		if err != nil {
			slog.Error("invalid upstream target", slog.String("target", upstream.Target), slog.String("error", err.Error()))
			return
		}
		router.Any(upstream.PathPrefix+"/*proxyPath", proxyTo(target))
		slog.Info("upstream registered", slog.String("pathPrefix", upstream.PathPrefix), slog.String("target", target.String()))
	}

	// Start the server
	slog.Info("Starting API Gateway on port " + conf.GinConfig.Port)
	if err := router.Run(":" + conf.GinConfig.Port); err != nil {
		slog.Error("Exited API Gateway", slog.String("error", err.Error()))
		return
	}
}

// proxyTo forwards the request unchanged; identity headers were already set
// by the auth middleware.
func proxyTo(target *url.URL) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(target)
	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
