package handler

import (
	"strconv"

	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/auth"
	"github.com/cityperks/service-redemption/internal/middleware"
	"github.com/cityperks/service-redemption/internal/response"
	"github.com/gin-gonic/gin"
)

// AdminHandler handles admin HTTP requests for purchase oversight.
type AdminHandler struct {
	redemptionService *application.RedemptionService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(redemptionService *application.RedemptionService) *AdminHandler {
	return &AdminHandler{redemptionService: redemptionService}
}

// RegisterRoutes registers admin oversight routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/purchases", h.ListPurchases)
		admin.GET("/stats/purchases", h.PurchaseStats)
	}
}

// ListPurchases handles GET /api/v1/admin/purchases.
func (h *AdminHandler) ListPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	purchases, total, err := h.redemptionService.ListAllPurchases(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, purchases, total, page, limit)
}

// PurchaseStats handles GET /api/v1/admin/stats/purchases.
func (h *AdminHandler) PurchaseStats(c *gin.Context) {
	stats, err := h.redemptionService.GetPurchaseStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
