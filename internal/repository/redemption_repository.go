package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cityperks/service-redemption/internal/domain"
	redemptionDomain "github.com/cityperks/service-redemption/internal/domain/redemption"
	voucherDomain "github.com/cityperks/service-redemption/internal/domain/voucher"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberVoucherModel is the GORM model for the member_vouchers table. The
// composite primary key enforces at most one pending offer per
// (member, voucher) pair.
type MemberVoucherModel struct {
	MemberID  string    `gorm:"type:varchar(64);primaryKey"`
	VoucherID string    `gorm:"type:varchar(64);primaryKey"`
	OfferedAt time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (MemberVoucherModel) TableName() string { return "member_vouchers" }

// PurchaseModel is the GORM model for the purchases table.
type PurchaseModel struct {
	PurchaseID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	MemberID     string    `gorm:"type:varchar(64);not null;index"`
	VoucherID    string    `gorm:"type:varchar(64);not null;index"`
	PurchaseDate time.Time `gorm:"type:timestamptz;not null"`
	Status       string    `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName sets the table name.
func (PurchaseModel) TableName() string { return "purchases" }

// GormRedemptionRepository implements redemption.Repository using GORM.
type GormRedemptionRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewGormRedemptionRepository creates a new GORM-based redemption repository.
func NewGormRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// InTx runs fn against a repository bound to one database transaction.
// GORM commits when fn returns nil and rolls back otherwise, so the claim's
// write set is all-or-nothing.
func (r *GormRedemptionRepository) InTx(ctx context.Context, fn func(tx redemptionDomain.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRedemptionRepository{db: tx, inTx: true})
	})
	if err == nil {
		return nil
	}
	var domErr *domain.DomainError
	if errors.As(err, &domErr) {
		return err
	}
	// Anything that is not a classified domain failure is a datastore or
	// commit error; no partial writes are visible, so the caller may retry.
	return domain.NewTransientError(err)
}

// LockVoucher reads a voucher row. Inside a transaction the read takes a
// FOR UPDATE lock, which serializes concurrent claimers on the same voucher:
// the loser blocks here and then observes the winner's committed status flip.
func (r *GormRedemptionRepository) LockVoucher(ctx context.Context, voucherID string) (*voucherDomain.Voucher, error) {
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model VoucherModel
	if err := q.Where("voucher_id = ?", voucherID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Voucher", voucherID)
		}
		return nil, err
	}
	return toVoucherDomain(&model)
}

// UpdateVoucher persists a voucher state transition.
func (r *GormRedemptionRepository) UpdateVoucher(ctx context.Context, v *voucherDomain.Voucher) error {
	return r.db.WithContext(ctx).
		Model(&VoucherModel{}).
		Where("voucher_id = ?", v.ID()).
		Updates(map[string]interface{}{
			"status":     string(v.Status()),
			"updated_at": v.UpdatedAt(),
		}).Error
}

// HasOffer reports whether a pending offer exists for (member, voucher).
func (r *GormRedemptionRepository) HasOffer(ctx context.Context, memberID, voucherID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MemberVoucherModel{}).
		Where("member_id = ? AND voucher_id = ?", memberID, voucherID).
		Count(&count).Error
	return count > 0, err
}

// SaveOffer records that a voucher was offered to a member.
func (r *GormRedemptionRepository) SaveOffer(ctx context.Context, offer *redemptionDomain.VoucherOffer) error {
	model := MemberVoucherModel{
		MemberID:  offer.MemberID,
		VoucherID: offer.VoucherID,
		OfferedAt: offer.OfferedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("voucher already offered to member")
		}
		return err
	}
	return nil
}

// DeleteOffer removes the pending offer for (member, voucher).
func (r *GormRedemptionRepository) DeleteOffer(ctx context.Context, memberID, voucherID string) error {
	return r.db.WithContext(ctx).
		Where("member_id = ? AND voucher_id = ?", memberID, voucherID).
		Delete(&MemberVoucherModel{}).Error
}

// ListOffersByMember returns a member's pending offers.
func (r *GormRedemptionRepository) ListOffersByMember(ctx context.Context, memberID string) ([]*redemptionDomain.VoucherOffer, error) {
	var models []MemberVoucherModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("offered_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	offers := make([]*redemptionDomain.VoucherOffer, len(models))
	for i, m := range models {
		offers[i] = &redemptionDomain.VoucherOffer{
			MemberID:  m.MemberID,
			VoucherID: m.VoucherID,
			OfferedAt: m.OfferedAt,
		}
	}
	return offers, nil
}

// ListUpcomingVouchers returns the vouchers behind a member's pending offers.
func (r *GormRedemptionRepository) ListUpcomingVouchers(ctx context.Context, memberID string) ([]*voucherDomain.Voucher, error) {
	var models []VoucherModel
	if err := r.db.WithContext(ctx).
		Joins("JOIN member_vouchers ON member_vouchers.voucher_id = vouchers.voucher_id").
		Where("member_vouchers.member_id = ?", memberID).
		Order("member_vouchers.offered_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	vouchers := make([]*voucherDomain.Voucher, 0, len(models))
	for i := range models {
		v, err := toVoucherDomain(&models[i])
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, nil
}

// SavePurchase appends a purchase record.
func (r *GormRedemptionRepository) SavePurchase(ctx context.Context, p *redemptionDomain.Purchase) error {
	model := PurchaseModel{
		PurchaseID:   p.ID,
		MemberID:     p.MemberID,
		VoucherID:    p.VoucherID,
		PurchaseDate: p.PurchaseDate,
		Status:       p.Status,
		CreatedAt:    p.PurchaseDate,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListPurchasesByMember returns a member's purchase history, newest first.
func (r *GormRedemptionRepository) ListPurchasesByMember(ctx context.Context, memberID string) ([]*redemptionDomain.Purchase, error) {
	var models []PurchaseModel
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("purchase_date DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	purchases := make([]*redemptionDomain.Purchase, len(models))
	for i := range models {
		purchases[i] = toPurchaseDomain(&models[i])
	}
	return purchases, nil
}

// ListAllPurchases returns all purchases with pagination (admin).
func (r *GormRedemptionRepository) ListAllPurchases(ctx context.Context, page, limit int) ([]*redemptionDomain.Purchase, int64, error) {
	var total int64
	r.db.WithContext(ctx).Model(&PurchaseModel{}).Count(&total)

	var models []PurchaseModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("purchase_date DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	purchases := make([]*redemptionDomain.Purchase, len(models))
	for i := range models {
		purchases[i] = toPurchaseDomain(&models[i])
	}
	return purchases, total, nil
}

// GetPurchaseStats returns the total purchase count and per-status breakdown (admin).
func (r *GormRedemptionRepository) GetPurchaseStats(ctx context.Context) (int64, map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&PurchaseModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return 0, nil, err
	}

	var total int64
	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
		total += sc.Count
	}
	return total, counts, nil
}

// toPurchaseDomain maps a PurchaseModel to the domain record.
func toPurchaseDomain(m *PurchaseModel) *redemptionDomain.Purchase {
	return &redemptionDomain.Purchase{
		ID:           m.PurchaseID,
		MemberID:     m.MemberID,
		VoucherID:    m.VoucherID,
		PurchaseDate: m.PurchaseDate,
		Status:       m.Status,
	}
}
