package app

import (
	"context"

	"identity-service/internal/config"
	"identity-service/internal/employee"
	"identity-service/internal/handler"
	"identity-service/internal/middleware"
	"identity-service/internal/profile"
	"identity-service/internal/provision"
	"identity-service/internal/reporting"
	"identity-service/internal/roles"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	store := employee.NewPostgresStore(infra.DB)

	saga := provision.NewSaga(store, infra.IDP, infra.Mailer)
	profiles := profile.NewCoordinator(store, infra.IDP)
	roleEngine := roles.NewEngine(store, infra.IDP, cfg.KeycloakRealm)
	reportingResolver := reporting.NewResolver(store, roleEngine)

	authMiddleware, err := middleware.NewAuthMiddleware(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	if err != nil {
		return nil, nil, err
	}

	imsHandler := handler.New(saga, profiles, roleEngine, reportingResolver, store)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	imsHandler.RegisterRoutes(router, authMiddleware.RequireAuth())

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
