package handler

import (
	"net/http"

	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/cityperks/service-redemption/internal/response"
	"github.com/gin-gonic/gin"
)

// RedemptionHandler handles HTTP requests for the claim transaction and
// member read paths.
type RedemptionHandler struct {
	service *application.RedemptionService
}

// NewRedemptionHandler creates a new RedemptionHandler.
func NewRedemptionHandler(service *application.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{service: service}
}

// RegisterRoutes registers claim and member routes on the given router group.
func (h *RedemptionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/vouchers/claim", h.ClaimVoucher)

	members := r.Group("/members/:memberId")
	{
		members.GET("/vouchers/upcoming", h.ListUpcomingVouchers)
		members.GET("/purchases", h.ListPurchases)
	}
}

// ClaimVoucher handles POST /api/v1/vouchers/claim.
//
// The response contract is fixed: the body is always a single JSON object
// holding either "purchase" or "error".
func (h *RedemptionHandler) ClaimVoucher(c *gin.Context) {
	var req application.ClaimVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": application.MsgMissingInput})
		return
	}

	dto, err := h.service.ClaimVoucher(c.Request.Context(), req)
	if err != nil {
		writeClaimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase": dto})
}

// ListUpcomingVouchers handles GET /api/v1/members/:memberId/vouchers/upcoming.
func (h *RedemptionHandler) ListUpcomingVouchers(c *gin.Context) {
	vouchers, err := h.service.ListUpcomingVouchers(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, vouchers)
}

// ListPurchases handles GET /api/v1/members/:memberId/purchases.
func (h *RedemptionHandler) ListPurchases(c *gin.Context) {
	purchases, err := h.service.ListMemberPurchases(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, purchases)
}

// writeClaimError maps a claim failure onto the endpoint's fixed response
// table. Datastore and integrity failures collapse into the generic 500
// body; transient ones additionally carry a Retry-After header since no
// partial writes were left behind.
func writeClaimError(c *gin.Context, err error) {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": claimMessage(err)})
	case domain.IsKind(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": application.MsgVoucherNotFound})
	case domain.IsKind(err, domain.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": claimMessage(err)})
	case domain.IsKind(err, domain.ErrTransient):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim voucher"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim voucher"})
	}
}

// claimMessage extracts the caller-safe message from a classified error.
func claimMessage(err error) string {
	if domErr, ok := err.(*domain.DomainError); ok {
		return domErr.Message
	}
	return "Failed to claim voucher"
}
