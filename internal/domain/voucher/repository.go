package voucher

import (
	"context"
)

// Repository defines persistence operations for vouchers outside the claim
// transaction (administration and read paths).
type Repository interface {
	Save(ctx context.Context, v *Voucher) error
	FindByID(ctx context.Context, id string) (*Voucher, error)
	FindActive(ctx context.Context) ([]*Voucher, error)
}
