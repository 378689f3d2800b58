package handler

import (
	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/auth"
	"github.com/cityperks/service-redemption/internal/middleware"
	"github.com/cityperks/service-redemption/internal/response"
	"github.com/gin-gonic/gin"
)

// VoucherHandler handles HTTP requests for voucher and offer administration.
type VoucherHandler struct {
	service *application.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(service *application.VoucherService) *VoucherHandler {
	return &VoucherHandler{service: service}
}

// RegisterRoutes registers voucher routes. Management routes accept admin
// and partner tokens (partners manage their own vouchers through the CRM);
// the catalog read is public. The read lives under /catalog so no GET route
// shadows /vouchers/claim and wrong-method requests to the claim endpoint
// still hit the 405 guard.
func (h *VoucherHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.GET("/catalog/vouchers/:voucherId", h.GetVoucher)

	manage := r.Group("/admin/vouchers")
	manage.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin, auth.RolePartner))
	{
		manage.POST("", h.CreateVoucher)
		manage.GET("/active", h.GetActiveVouchers)
		manage.POST("/:voucherId/offers", h.GrantOffer)
		manage.DELETE("/:voucherId/offers/:memberId", h.RevokeOffer)
	}

	members := r.Group("/admin/members")
	members.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin, auth.RolePartner))
	{
		members.GET("/:memberId/offers", h.ListMemberOffers)
	}
}

// GetVoucher handles GET /api/v1/catalog/vouchers/:voucherId.
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	dto, err := h.service.GetVoucher(c.Request.Context(), c.Param("voucherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// CreateVoucher handles POST /api/v1/admin/vouchers.
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	var req application.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateVoucher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// GetActiveVouchers handles GET /api/v1/admin/vouchers/active.
func (h *VoucherHandler) GetActiveVouchers(c *gin.Context) {
	dtos, err := h.service.GetActiveVouchers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dtos)
}

// GrantOffer handles POST /api/v1/admin/vouchers/:voucherId/offers.
func (h *VoucherHandler) GrantOffer(c *gin.Context) {
	var req application.GrantOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.GrantOffer(c.Request.Context(), c.Param("voucherId"), req.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// ListMemberOffers handles GET /api/v1/admin/members/:memberId/offers.
func (h *VoucherHandler) ListMemberOffers(c *gin.Context) {
	offers, err := h.service.ListMemberOffers(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, offers)
}

// RevokeOffer handles DELETE /api/v1/admin/vouchers/:voucherId/offers/:memberId.
func (h *VoucherHandler) RevokeOffer(c *gin.Context) {
	if err := h.service.RevokeOffer(c.Request.Context(), c.Param("voucherId"), c.Param("memberId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"revoked": true})
}
