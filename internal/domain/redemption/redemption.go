package redemption

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PurchaseStatusRedeemed is the only status this flow writes. Purchases are
// append-only; nothing mutates them after creation.
const PurchaseStatusRedeemed = "redeemed"

// Purchase is the immutable record created by a successful claim.
type Purchase struct {
	ID           uuid.UUID
	MemberID     string
	VoucherID    string
	PurchaseDate time.Time
	Status       string
}

// NewPurchase creates the purchase record for a claim committing at now.
func NewPurchase(memberID, voucherID string, now time.Time) *Purchase {
	return &Purchase{
		ID:           uuid.New(),
		MemberID:     memberID,
		VoucherID:    voucherID,
		PurchaseDate: now.UTC(),
		Status:       PurchaseStatusRedeemed,
	}
}

// VoucherOffer records that a voucher has been made available to a member.
// At most one row exists per (member, voucher) pair; the row is consumed by
// a successful claim.
type VoucherOffer struct {
	MemberID  string
	VoucherID string
	OfferedAt time.Time
}

// NewVoucherOffer creates an offer for a member.
func NewVoucherOffer(memberID, voucherID string) *VoucherOffer {
	return &VoucherOffer{
		MemberID:  strings.TrimSpace(memberID),
		VoucherID: strings.TrimSpace(voucherID),
		OfferedAt: time.Now().UTC(),
	}
}
