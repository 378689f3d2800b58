package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier defines the Anti-Corruption Layer interface for the platform's
// notification system. The production implementation mails the member a
// redemption receipt; the domain only depends on this abstraction.
type Notifier interface {
	// SendRedemptionReceipt notifies a member that a voucher was redeemed.
	SendRedemptionReceipt(ctx context.Context, memberID, voucherID string, purchaseID uuid.UUID, purchaseDate time.Time) error
}

// MockNotifier is a development/testing implementation of Notifier that
// only logs the notification.
type MockNotifier struct {
	logger *zap.Logger
}

// NewMockNotifier creates a new mock notifier for development.
func NewMockNotifier(logger *zap.Logger) *MockNotifier {
	return &MockNotifier{logger: logger}
}

// SendRedemptionReceipt logs the receipt instead of sending it.
func (m *MockNotifier) SendRedemptionReceipt(ctx context.Context, memberID, voucherID string, purchaseID uuid.UUID, purchaseDate time.Time) error {
	m.logger.Info("[MOCK NOTIFIER] redemption receipt sent",
		zap.String("member_id", memberID),
		zap.String("voucher_id", voucherID),
		zap.String("purchase_id", purchaseID.String()),
		zap.Time("purchase_date", purchaseDate),
	)
	return nil
}
