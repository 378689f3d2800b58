//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/cityperks/service-redemption/internal/adapter"
	"github.com/cityperks/service-redemption/internal/application"
	offerConsumer "github.com/cityperks/service-redemption/internal/consumer"
	offerEvents "github.com/cityperks/service-redemption/internal/events"
	"github.com/cityperks/service-redemption/internal/kafka"
	"github.com/cityperks/service-redemption/internal/repository"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// redemptionStack holds wired-up redemption service components.
type redemptionStack struct {
	Redemption      *application.RedemptionService
	Vouchers        *application.VoucherService
	Consumer        *offerConsumer.OfferEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_redemption",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_redemption sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping. TranslateError must be
	// on so duplicate-key violations surface as gorm.ErrDuplicatedKey, same
	// as the production connection.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.VoucherModel{},
		&repository.MemberVoucherModel{},
		&repository.PurchaseModel{},
	))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, offerEvents.TopicVoucherEvents, offerEvents.TopicOfferEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRedemptionStack wires up the full redemption service stack.
func setupRedemptionStack(t *testing.T, db *gorm.DB, brokers []string) *redemptionStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	redemptionRepo := repository.NewGormRedemptionRepository(db)
	voucherRepo := repository.NewGormVoucherRepository(db)
	producer := kafka.NewProducer(brokers, logger)
	notifier := adapter.NewMockNotifier(logger)

	redemptionSvc := application.NewRedemptionService(redemptionRepo, producer, notifier, logger)
	voucherSvc := application.NewVoucherService(voucherRepo, redemptionRepo, logger)

	groupID := fmt.Sprintf("test-redemption-%s", uuid.New().String()[:8])
	consumer := offerConsumer.NewOfferEventConsumer(brokers, groupID, voucherSvc, logger)

	return &redemptionStack{
		Redemption:      redemptionSvc,
		Vouchers:        voucherSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedActiveVoucher inserts an active voucher row.
func seedActiveVoucher(t *testing.T, db *gorm.DB, voucherID string, expiresOn *time.Time) {
	t.Helper()
	now := time.Now().UTC()
	model := repository.VoucherModel{
		VoucherID:      voucherID,
		Title:          "Integration Test Voucher",
		ProviderID:     "provider-1",
		Status:         "active",
		ExpirationDate: expiresOn,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed voucher")
}

// seedOffer inserts a pending offer row for (member, voucher).
func seedOffer(t *testing.T, db *gorm.DB, memberID, voucherID string) {
	t.Helper()
	model := repository.MemberVoucherModel{
		MemberID:  memberID,
		VoucherID: voucherID,
		OfferedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed offer")
}

// countOffers returns the number of pending offers for (member, voucher).
func countOffers(t *testing.T, db *gorm.DB, memberID, voucherID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&repository.MemberVoucherModel{}).
		Where("member_id = ? AND voucher_id = ?", memberID, voucherID).
		Count(&count).Error)
	return count
}

// countPurchases returns the number of purchase rows for a voucher.
func countPurchases(t *testing.T, db *gorm.DB, voucherID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&repository.PurchaseModel{}).
		Where("voucher_id = ?", voucherID).
		Count(&count).Error)
	return count
}

// voucherStatus reads the current status of a voucher row.
func voucherStatus(t *testing.T, db *gorm.DB, voucherID string) string {
	t.Helper()
	var model repository.VoucherModel
	require.NoError(t, db.Where("voucher_id = ?", voucherID).First(&model).Error)
	return model.Status
}

// waitForOffer polls member_vouchers until the offer row appears or disappears.
func waitForOffer(t *testing.T, db *gorm.DB, memberID, voucherID string, present bool, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		return (countOffers(t, db, memberID, voucherID) > 0) == present
	}, timeout, 200*time.Millisecond, "offer (member=%s, voucher=%s) did not reach present=%v", memberID, voucherID, present)
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
