package application

import (
	"context"
	"strings"
	"time"

	"github.com/cityperks/service-redemption/internal/adapter"
	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/cityperks/service-redemption/internal/domain/redemption"
	"github.com/cityperks/service-redemption/internal/domain/voucher"
	"github.com/cityperks/service-redemption/internal/events"
	"github.com/cityperks/service-redemption/internal/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Claim failure messages exposed to callers.
const (
	MsgMissingInput    = "Missing memberId or voucherId"
	MsgVoucherNotFound = "Voucher not found"
	MsgNotActive       = "Voucher is not active"
	MsgExpired         = "Voucher is expired"
	MsgNotInList       = "Voucher is not in member upcoming list"
)

// EventPublisher publishes CloudEvents. Satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// ClaimVoucherRequest is the DTO for a claim call.
type ClaimVoucherRequest struct {
	MemberID  string `json:"memberId"`
	VoucherID string `json:"voucherId"`
}

// PurchaseDTO is the API response representation of a purchase.
type PurchaseDTO struct {
	PurchaseID   uuid.UUID `json:"purchase_id"`
	MemberID     string    `json:"member_id"`
	VoucherID    string    `json:"voucher_id"`
	PurchaseDate time.Time `json:"purchase_date"`
	Status       string    `json:"status"`
}

// PurchaseStatsDTO holds purchase statistics for the admin dashboard.
type PurchaseStatsDTO struct {
	TotalPurchases int64            `json:"total_purchases"`
	ByStatus       map[string]int64 `json:"by_status"`
}

// RedemptionService orchestrates the voucher claim transaction and the
// read paths over offers and purchases.
type RedemptionService struct {
	repo     redemption.Repository
	producer EventPublisher
	notifier adapter.Notifier
	logger   *zap.Logger
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(
	repo redemption.Repository,
	producer EventPublisher,
	notifier adapter.Notifier,
	logger *zap.Logger,
) *RedemptionService {
	return &RedemptionService{
		repo:     repo,
		producer: producer,
		notifier: notifier,
		logger:   logger,
	}
}

// ClaimVoucher atomically transitions a voucher from offered to redeemed.
// All guard reads and the three writes (purchase insert, offer delete,
// status flip) execute inside one database transaction: either all become
// visible or none do.
func (s *RedemptionService) ClaimVoucher(ctx context.Context, req ClaimVoucherRequest) (*PurchaseDTO, error) {
	memberID := strings.TrimSpace(req.MemberID)
	voucherID := strings.TrimSpace(req.VoucherID)
	if memberID == "" || voucherID == "" {
		return nil, domain.NewValidationError(MsgMissingInput)
	}

	var purchase *redemption.Purchase
	err := s.repo.InTx(ctx, func(tx redemption.Repository) error {
		v, err := tx.LockVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		if v.Status() != voucher.StatusActive {
			return domain.NewInvalidStateError(MsgNotActive)
		}
		now := time.Now().UTC()
		if v.IsExpired(now) {
			return domain.NewInvalidStateError(MsgExpired)
		}

		held, err := tx.HasOffer(ctx, memberID, voucherID)
		if err != nil {
			return err
		}
		if !held {
			return domain.NewInvalidStateError(MsgNotInList)
		}

		purchase = redemption.NewPurchase(memberID, voucherID, now)
		if err := tx.SavePurchase(ctx, purchase); err != nil {
			return err
		}
		if err := tx.DeleteOffer(ctx, memberID, voucherID); err != nil {
			return err
		}
		if err := v.Redeem(now); err != nil {
			return domain.NewInvalidStateError(MsgNotActive)
		}
		return tx.UpdateVoucher(ctx, v)
	})
	if err != nil {
		s.logger.Warn("voucher claim rejected",
			zap.String("member_id", memberID),
			zap.String("voucher_id", voucherID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("voucher claimed",
		zap.String("member_id", memberID),
		zap.String("voucher_id", voucherID),
		zap.String("purchase_id", purchase.ID.String()),
	)

	s.publishRedeemedEvent(ctx, purchase)
	if err := s.notifier.SendRedemptionReceipt(ctx, memberID, voucherID, purchase.ID, purchase.PurchaseDate); err != nil {
		s.logger.Error("failed to send redemption receipt", zap.Error(err))
	}

	dto := toPurchaseDTO(purchase)
	return &dto, nil
}

// ListUpcomingVouchers returns the vouchers in a member's pending list.
func (s *RedemptionService) ListUpcomingVouchers(ctx context.Context, memberID string) ([]VoucherDTO, error) {
	vouchers, err := s.repo.ListUpcomingVouchers(ctx, memberID)
	if err != nil {
		return nil, err
	}

	dtos := make([]VoucherDTO, len(vouchers))
	for i, v := range vouchers {
		dtos[i] = toVoucherDTO(v)
	}
	return dtos, nil
}

// ListMemberPurchases returns a member's purchase history.
func (s *RedemptionService) ListMemberPurchases(ctx context.Context, memberID string) ([]PurchaseDTO, error) {
	purchases, err := s.repo.ListPurchasesByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	dtos := make([]PurchaseDTO, len(purchases))
	for i, p := range purchases {
		dtos[i] = toPurchaseDTO(p)
	}
	return dtos, nil
}

// ListAllPurchases returns a paginated list of all purchases (admin).
func (s *RedemptionService) ListAllPurchases(ctx context.Context, page, limit int) ([]PurchaseDTO, int64, error) {
	purchases, total, err := s.repo.ListAllPurchases(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]PurchaseDTO, len(purchases))
	for i, p := range purchases {
		dtos[i] = toPurchaseDTO(p)
	}
	return dtos, total, nil
}

// GetPurchaseStats returns aggregate purchase statistics (admin).
func (s *RedemptionService) GetPurchaseStats(ctx context.Context) (*PurchaseStatsDTO, error) {
	total, counts, err := s.repo.GetPurchaseStats(ctx)
	if err != nil {
		return nil, err
	}
	return &PurchaseStatsDTO{TotalPurchases: total, ByStatus: counts}, nil
}

// publishRedeemedEvent publishes a VoucherRedeemedEvent after commit.
// Publication is best-effort: the claim already committed and its outcome
// must not depend on the broker.
func (s *RedemptionService) publishRedeemedEvent(ctx context.Context, p *redemption.Purchase) {
	event := events.VoucherRedeemedEvent{
		PurchaseID:   p.ID,
		MemberID:     p.MemberID,
		VoucherID:    p.VoucherID,
		PurchaseDate: p.PurchaseDate,
		OccurredAt:   time.Now().UTC(),
	}

	cloudEvent, err := kafka.NewCloudEvent("service-redemption", events.VoucherRedeemed, event)
	if err != nil {
		s.logger.Error("failed to create voucher redeemed cloud event", zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicVoucherEvents, cloudEvent); err != nil {
		s.logger.Error("failed to publish voucher redeemed event", zap.Error(err))
	}
}

// toPurchaseDTO maps a domain Purchase to its API representation.
func toPurchaseDTO(p *redemption.Purchase) PurchaseDTO {
	return PurchaseDTO{
		PurchaseID:   p.ID,
		MemberID:     p.MemberID,
		VoucherID:    p.VoucherID,
		PurchaseDate: p.PurchaseDate,
		Status:       p.Status,
	}
}
