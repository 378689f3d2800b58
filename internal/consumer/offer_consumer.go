package consumer

import (
	"context"
	"strings"

	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/cityperks/service-redemption/internal/events"
	"github.com/cityperks/service-redemption/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OfferEventConsumer listens to offer events from the partner CRM and
// materializes pending offers in the member_vouchers table.
type OfferEventConsumer struct {
	consumer       *kafka.Consumer
	voucherService *application.VoucherService
	logger         *zap.Logger
}

// NewOfferEventConsumer creates a new consumer for offer events.
func NewOfferEventConsumer(
	brokers []string,
	groupID string,
	voucherService *application.VoucherService,
	logger *zap.Logger,
) *OfferEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicOfferEvents, logger)
	return &OfferEventConsumer{
		consumer:       consumer,
		voucherService: voucherService,
		logger:         logger,
	}
}

// Start begins consuming offer events. It blocks until the context is cancelled.
func (c *OfferEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *OfferEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from offer topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received offer event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, events.VoucherOfferCreated):
		return c.handleOfferCreated(ctx, cloudEvent)

	case strings.EqualFold(cloudEvent.Type, events.VoucherOfferRevoked):
		return c.handleOfferRevoked(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled offer event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handleOfferCreated processes a VoucherOfferCreatedEvent. Replayed events
// for an already-materialized offer are skipped.
func (c *OfferEventConsumer) handleOfferCreated(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.VoucherOfferCreatedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse VoucherOfferCreatedEvent data", zap.Error(err))
		return err
	}

	_, err := c.voucherService.GrantOffer(ctx, event.VoucherID, event.MemberID)
	if err != nil {
		if domain.IsKind(err, domain.ErrConflict) {
			c.logger.Debug("offer already materialized, skipping",
				zap.String("member_id", event.MemberID),
				zap.String("voucher_id", event.VoucherID),
			)
			return nil
		}
		return err
	}
	return nil
}

// handleOfferRevoked processes a VoucherOfferRevokedEvent.
func (c *OfferEventConsumer) handleOfferRevoked(ctx context.Context, ce kafka.CloudEvent) error {
	var event events.VoucherOfferRevokedEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse VoucherOfferRevokedEvent data", zap.Error(err))
		return err
	}

	return c.voucherService.RevokeOffer(ctx, event.VoucherID, event.MemberID)
}

// Close closes the underlying Kafka consumer.
func (c *OfferEventConsumer) Close() error {
	return c.consumer.Close()
}
