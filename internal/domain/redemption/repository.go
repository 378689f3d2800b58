package redemption

import (
	"context"

	"github.com/cityperks/service-redemption/internal/domain/voucher"
)

// Repository defines the persistence contract for the claim transaction and
// the offer/purchase records around it.
type Repository interface {
	// InTx runs fn against a repository bound to a single database
	// transaction. fn returning an error rolls the transaction back; nil
	// commits it. Either way no partial write set becomes visible.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// LockVoucher reads a voucher and, when called inside InTx, acquires a
	// row lock so concurrent claimers of the same voucher serialize.
	LockVoucher(ctx context.Context, voucherID string) (*voucher.Voucher, error)

	// UpdateVoucher persists a voucher state transition.
	UpdateVoucher(ctx context.Context, v *voucher.Voucher) error

	// HasOffer reports whether a pending offer exists for (member, voucher).
	HasOffer(ctx context.Context, memberID, voucherID string) (bool, error)

	// SaveOffer records that a voucher was offered to a member.
	SaveOffer(ctx context.Context, offer *VoucherOffer) error

	// DeleteOffer removes the pending offer for (member, voucher).
	DeleteOffer(ctx context.Context, memberID, voucherID string) error

	// ListOffersByMember returns a member's pending offers.
	ListOffersByMember(ctx context.Context, memberID string) ([]*VoucherOffer, error)

	// ListUpcomingVouchers returns the vouchers behind a member's pending offers.
	ListUpcomingVouchers(ctx context.Context, memberID string) ([]*voucher.Voucher, error)

	// SavePurchase appends a purchase record.
	SavePurchase(ctx context.Context, p *Purchase) error

	// ListPurchasesByMember returns a member's purchase history, newest first.
	ListPurchasesByMember(ctx context.Context, memberID string) ([]*Purchase, error)

	// ListAllPurchases returns all purchases with pagination (admin).
	ListAllPurchases(ctx context.Context, page, limit int) ([]*Purchase, int64, error)

	// GetPurchaseStats returns the total purchase count and a per-status
	// breakdown (admin).
	GetPurchaseStats(ctx context.Context) (total int64, countByStatus map[string]int64, err error)
}
