package main

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Rupe88/japan-project/pkg/tokens"
	"github.com/Rupe88/japan-project/services/auth-api/apihandlers"
)

func main() {
	tokenConfigs := conf.UserManagementConfig.TokenConfigs

	issuer := tokens.NewIssuer(tokens.IssuerConfig{
		AccessTokenSignKey:  tokenConfigs.AccessTokenSignKey,
		RefreshTokenSignKey: tokenConfigs.RefreshTokenSignKey,
		AccessTokenTTL:      tokenConfigs.AccessTokenTTL,
		RefreshTokenTTL:     tokenConfigs.RefreshTokenTTL,
	}, authDBService, authDBService)

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

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		tokenConfigs.AccessTokenSignKey,
		issuer,
		authDBService,
		authDBService,
		conf.UserManagementConfig.VerificationCodeTTL,
	)
	v1APIHandlers.AddAuthAPI(v1Root)
	v1APIHandlers.AddPasswordResetAPI(v1Root)

	// Start the server
	slog.Info("Starting Auth API on port " + conf.GinConfig.Port)
	if err := router.Run(":" + conf.GinConfig.Port); err != nil {
		slog.Error("Exited Auth API", slog.String("error", err.Error()))
		return
	}
}
