package application

import (
	"context"
	"time"

	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/cityperks/service-redemption/internal/domain/redemption"
	voucherDomain "github.com/cityperks/service-redemption/internal/domain/voucher"
	"go.uber.org/zap"
)

// CreateVoucherRequest holds data to create a voucher (admin/partner only).
type CreateVoucherRequest struct {
	VoucherID      string `json:"voucher_id" binding:"required"`
	Title          string `json:"title"`
	ProviderID     string `json:"provider_id"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// GrantOfferRequest holds data to offer a voucher to a member.
type GrantOfferRequest struct {
	MemberID string `json:"member_id" binding:"required"`
}

// VoucherDTO is the API response representation of a voucher.
type VoucherDTO struct {
	VoucherID      string     `json:"voucher_id"`
	Title          string     `json:"title,omitempty"`
	ProviderID     string     `json:"provider_id,omitempty"`
	Status         string     `json:"status"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OfferDTO is the API response representation of a pending offer.
type OfferDTO struct {
	MemberID  string    `json:"member_id"`
	VoucherID string    `json:"voucher_id"`
	OfferedAt time.Time `json:"offered_at"`
}

// VoucherService handles voucher and offer administration use cases.
type VoucherService struct {
	vouchers voucherDomain.Repository
	offers   redemption.Repository
	logger   *zap.Logger
}

// NewVoucherService creates a new VoucherService.
func NewVoucherService(vouchers voucherDomain.Repository, offers redemption.Repository, logger *zap.Logger) *VoucherService {
	return &VoucherService{vouchers: vouchers, offers: offers, logger: logger}
}

// CreateVoucher creates a new active voucher.
func (s *VoucherService) CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*VoucherDTO, error) {
	var expiresOn *time.Time
	if req.ExpirationDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.ExpirationDate)
		if err != nil {
			return nil, domain.NewValidationError("invalid expiration_date format (use YYYY-MM-DD)")
		}
		expiresOn = &parsed
	}

	v, err := voucherDomain.NewVoucher(req.VoucherID, req.Title, req.ProviderID, expiresOn)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if err := s.vouchers.Save(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("voucher created", zap.String("voucher_id", v.ID()))
	dto := toVoucherDTO(v)
	return &dto, nil
}

// GetVoucher retrieves a voucher by its ID.
func (s *VoucherService) GetVoucher(ctx context.Context, voucherID string) (*VoucherDTO, error) {
	v, err := s.vouchers.FindByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	dto := toVoucherDTO(v)
	return &dto, nil
}

// GetActiveVouchers returns all vouchers currently in the active state.
func (s *VoucherService) GetActiveVouchers(ctx context.Context) ([]VoucherDTO, error) {
	vouchers, err := s.vouchers.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]VoucherDTO, len(vouchers))
	for i, v := range vouchers {
		dtos[i] = toVoucherDTO(v)
	}
	return dtos, nil
}

// GrantOffer adds a voucher to a member's pending list. The voucher must
// exist and be active.
func (s *VoucherService) GrantOffer(ctx context.Context, voucherID, memberID string) (*OfferDTO, error) {
	v, err := s.vouchers.FindByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	if v.Status() != voucherDomain.StatusActive {
		return nil, domain.NewInvalidStateError("voucher is not active")
	}

	offer := redemption.NewVoucherOffer(memberID, voucherID)
	if offer.MemberID == "" {
		return nil, domain.NewValidationError("member_id is required")
	}
	if err := s.offers.SaveOffer(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.Info("voucher offered",
		zap.String("voucher_id", voucherID),
		zap.String("member_id", offer.MemberID),
	)
	return &OfferDTO{MemberID: offer.MemberID, VoucherID: offer.VoucherID, OfferedAt: offer.OfferedAt}, nil
}

// ListMemberOffers returns a member's pending offers, newest first.
func (s *VoucherService) ListMemberOffers(ctx context.Context, memberID string) ([]OfferDTO, error) {
	offers, err := s.offers.ListOffersByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	dtos := make([]OfferDTO, len(offers))
	for i, o := range offers {
		dtos[i] = OfferDTO{MemberID: o.MemberID, VoucherID: o.VoucherID, OfferedAt: o.OfferedAt}
	}
	return dtos, nil
}

// RevokeOffer removes a pending offer before redemption.
func (s *VoucherService) RevokeOffer(ctx context.Context, voucherID, memberID string) error {
	if err := s.offers.DeleteOffer(ctx, memberID, voucherID); err != nil {
		return err
	}
	s.logger.Info("voucher offer revoked",
		zap.String("voucher_id", voucherID),
		zap.String("member_id", memberID),
	)
	return nil
}

// toVoucherDTO maps a domain Voucher to its API representation.
func toVoucherDTO(v *voucherDomain.Voucher) VoucherDTO {
	return VoucherDTO{
		VoucherID:      v.ID(),
		Title:          v.Title(),
		ProviderID:     v.ProviderID(),
		Status:         string(v.Status()),
		ExpirationDate: v.ExpiresOn(),
		CreatedAt:      v.CreatedAt(),
	}
}
