package voucher

import (
	"fmt"
	"strings"
	"time"
)

// Status is the closed lifecycle enumeration for a voucher.
type Status string

const (
	StatusActive   Status = "active"
	StatusRedeemed Status = "redeemed"
	StatusExpired  Status = "expired"
)

// ParseStatus maps a stored status string onto the closed enumeration.
// Comparison is case-insensitive; unrecognized values are rejected so a
// corrupt row surfaces as a data-integrity failure instead of silently
// reading as "not active".
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusActive:
		return StatusActive, nil
	case StatusRedeemed:
		return StatusRedeemed, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", fmt.Errorf("unrecognized voucher status: %q", raw)
	}
}

// Voucher is the aggregate root for redeemable offers.
type Voucher struct {
	id         string
	title      string
	providerID string
	status     Status
	expiresOn  *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewVoucher creates a new voucher in the active state.
func NewVoucher(id, title, providerID string, expiresOn *time.Time) (*Voucher, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("voucher id is required")
	}

	now := time.Now().UTC()
	return &Voucher{
		id:         id,
		title:      strings.TrimSpace(title),
		providerID: strings.TrimSpace(providerID),
		status:     StatusActive,
		expiresOn:  expiresOn,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Voucher from persistence.
func Reconstruct(id, title, providerID string, status Status, expiresOn *time.Time, createdAt, updatedAt time.Time) *Voucher {
	return &Voucher{
		id: id, title: title, providerID: providerID, status: status,
		expiresOn: expiresOn, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// IsExpired reports whether the voucher's expiration date has passed at
// date granularity. Both sides are normalized to UTC calendar dates, so a
// voucher expiring today is still redeemable regardless of time of day.
func (v *Voucher) IsExpired(now time.Time) bool {
	if v.expiresOn == nil {
		return false
	}
	ey, em, ed := v.expiresOn.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return expiry.Before(today)
}

// Redeem transitions the voucher from active to redeemed. The transition is
// one-way; there is no un-redeem.
func (v *Voucher) Redeem(now time.Time) error {
	if v.status != StatusActive {
		return fmt.Errorf("cannot redeem voucher in %s state", v.status)
	}
	v.status = StatusRedeemed
	v.updatedAt = now.UTC()
	return nil
}

// Getters.
func (v *Voucher) ID() string            { return v.id }
func (v *Voucher) Title() string         { return v.title }
func (v *Voucher) ProviderID() string    { return v.providerID }
func (v *Voucher) Status() Status        { return v.status }
func (v *Voucher) ExpiresOn() *time.Time { return v.expiresOn }
func (v *Voucher) CreatedAt() time.Time  { return v.createdAt }
func (v *Voucher) UpdatedAt() time.Time  { return v.updatedAt }
