package events

import (
	"time"

	"github.com/google/uuid"
)

// Topic names.
const (
	TopicVoucherEvents = "voucher.events"
	TopicOfferEvents   = "voucher.offers"
)

// Event type identifiers.
const (
	VoucherRedeemed     = "voucher.redeemed"
	VoucherOfferCreated = "voucher.offer.created"
	VoucherOfferRevoked = "voucher.offer.revoked"
)

// VoucherRedeemedEvent is published after a claim commits.
type VoucherRedeemedEvent struct {
	PurchaseID   uuid.UUID `json:"purchase_id"`
	MemberID     string    `json:"member_id"`
	VoucherID    string    `json:"voucher_id"`
	PurchaseDate time.Time `json:"purchase_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// VoucherOfferCreatedEvent is published by the partner CRM when a voucher
// is presented to a member.
type VoucherOfferCreatedEvent struct {
	MemberID   string    `json:"member_id"`
	VoucherID  string    `json:"voucher_id"`
	OfferedAt  time.Time `json:"offered_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

// VoucherOfferRevokedEvent is published when a pending offer is withdrawn
// before redemption.
type VoucherOfferRevokedEvent struct {
	MemberID   string    `json:"member_id"`
	VoucherID  string    `json:"voucher_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
