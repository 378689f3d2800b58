package handler

import (
	"net/http"

	"github.com/cityperks/service-redemption/internal/auth"
	"github.com/cityperks/service-redemption/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter assembles the gin engine with global middleware, the 405 guard
// and all API routes under /api/v1.
func NewRouter(
	logger *zap.Logger,
	jwtManager *auth.JWTManager,
	redemptionHandler *RedemptionHandler,
	voucherHandler *VoucherHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Preflight OPTIONS is answered by the CORS middleware; a bare OPTIONS
	// without an Origin header falls through to here and still gets an empty
	// success. 405 is reserved for the remaining methods.
	router.NoMethod(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	apiV1 := router.Group("/api/v1")
	redemptionHandler.RegisterRoutes(apiV1)
	voucherHandler.RegisterRoutes(apiV1, jwtManager)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

	return router
}
