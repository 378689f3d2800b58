package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cityperks/service-redemption/internal/application"
	"github.com/cityperks/service-redemption/internal/domain"
	"github.com/cityperks/service-redemption/internal/domain/redemption"
	"github.com/cityperks/service-redemption/internal/domain/voucher"
	"github.com/cityperks/service-redemption/internal/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryRepo is an in-memory redemption.Repository for unit tests. InTx
// serializes callers with a mutex and discards writes when fn fails,
// mirroring the rollback contract.
type memoryRepo struct {
	mu        sync.Mutex
	vouchers  map[string]*voucher.Voucher
	offers    map[[2]string]time.Time
	purchases []*redemption.Purchase
	touches   int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		vouchers: make(map[string]*voucher.Voucher),
		offers:   make(map[[2]string]time.Time),
	}
}

func (r *memoryRepo) putVoucher(id string, status voucher.Status, expiresOn *time.Time) {
	now := time.Now().UTC()
	r.vouchers[id] = voucher.Reconstruct(id, "", "", status, expiresOn, now, now)
}

func (r *memoryRepo) putOffer(memberID, voucherID string) {
	r.offers[[2]string{memberID, voucherID}] = time.Now().UTC()
}

func (r *memoryRepo) InTx(ctx context.Context, fn func(tx redemption.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := &memoryRepo{
		vouchers:  make(map[string]*voucher.Voucher, len(r.vouchers)),
		offers:    make(map[[2]string]time.Time, len(r.offers)),
		purchases: append([]*redemption.Purchase(nil), r.purchases...),
	}
	for k, v := range r.vouchers {
		snapshot.vouchers[k] = v
	}
	for k, v := range r.offers {
		snapshot.offers[k] = v
	}

	if err := fn(snapshot); err != nil {
		r.touches += snapshot.touches
		return err
	}

	r.vouchers = snapshot.vouchers
	r.offers = snapshot.offers
	r.purchases = snapshot.purchases
	r.touches += snapshot.touches
	return nil
}

func (r *memoryRepo) LockVoucher(ctx context.Context, voucherID string) (*voucher.Voucher, error) {
	r.touches++
	v, ok := r.vouchers[voucherID]
	if !ok {
		return nil, domain.NewNotFoundError("Voucher", voucherID)
	}
	return voucher.Reconstruct(v.ID(), v.Title(), v.ProviderID(), v.Status(), v.ExpiresOn(), v.CreatedAt(), v.UpdatedAt()), nil
}

func (r *memoryRepo) UpdateVoucher(ctx context.Context, v *voucher.Voucher) error {
	r.touches++
	r.vouchers[v.ID()] = v
	return nil
}

func (r *memoryRepo) HasOffer(ctx context.Context, memberID, voucherID string) (bool, error) {
	r.touches++
	_, ok := r.offers[[2]string{memberID, voucherID}]
	return ok, nil
}

func (r *memoryRepo) SaveOffer(ctx context.Context, offer *redemption.VoucherOffer) error {
	r.touches++
	key := [2]string{offer.MemberID, offer.VoucherID}
	if _, ok := r.offers[key]; ok {
		return domain.NewConflictError("voucher already offered to member")
	}
	r.offers[key] = offer.OfferedAt
	return nil
}

func (r *memoryRepo) DeleteOffer(ctx context.Context, memberID, voucherID string) error {
	r.touches++
	delete(r.offers, [2]string{memberID, voucherID})
	return nil
}

func (r *memoryRepo) ListOffersByMember(ctx context.Context, memberID string) ([]*redemption.VoucherOffer, error) {
	var offers []*redemption.VoucherOffer
	for key, offeredAt := range r.offers {
		if key[0] == memberID {
			offers = append(offers, &redemption.VoucherOffer{MemberID: key[0], VoucherID: key[1], OfferedAt: offeredAt})
		}
	}
	return offers, nil
}

func (r *memoryRepo) ListUpcomingVouchers(ctx context.Context, memberID string) ([]*voucher.Voucher, error) {
	var vouchers []*voucher.Voucher
	for key := range r.offers {
		if key[0] == memberID {
			if v, ok := r.vouchers[key[1]]; ok {
				vouchers = append(vouchers, v)
			}
		}
	}
	return vouchers, nil
}

func (r *memoryRepo) SavePurchase(ctx context.Context, p *redemption.Purchase) error {
	r.touches++
	r.purchases = append(r.purchases, p)
	return nil
}

func (r *memoryRepo) ListPurchasesByMember(ctx context.Context, memberID string) ([]*redemption.Purchase, error) {
	var purchases []*redemption.Purchase
	for _, p := range r.purchases {
		if p.MemberID == memberID {
			purchases = append(purchases, p)
		}
	}
	return purchases, nil
}

func (r *memoryRepo) ListAllPurchases(ctx context.Context, page, limit int) ([]*redemption.Purchase, int64, error) {
	return r.purchases, int64(len(r.purchases)), nil
}

func (r *memoryRepo) GetPurchaseStats(ctx context.Context) (int64, map[string]int64, error) {
	counts := make(map[string]int64)
	for _, p := range r.purchases {
		counts[p.Status]++
	}
	return int64(len(r.purchases)), counts, nil
}

// capturePublisher records published events instead of touching a broker.
type capturePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *capturePublisher) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// captureNotifier records receipts instead of sending them.
type captureNotifier struct {
	receipts int
}

func (n *captureNotifier) SendRedemptionReceipt(ctx context.Context, memberID, voucherID string, purchaseID uuid.UUID, purchaseDate time.Time) error {
	n.receipts++
	return nil
}

func newService(repo *memoryRepo) (*application.RedemptionService, *capturePublisher, *captureNotifier) {
	publisher := &capturePublisher{}
	notifier := &captureNotifier{}
	svc := application.NewRedemptionService(repo, publisher, notifier, zap.NewNop())
	return svc, publisher, notifier
}

func futureDate() *time.Time {
	d := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestClaimVoucher_HappyPath(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC1", voucher.StatusActive, futureDate())
	repo.putOffer("M1", "VC1")
	svc, publisher, notifier := newService(repo)

	dto, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.NoError(t, err)

	assert.Equal(t, "M1", dto.MemberID)
	assert.Equal(t, "VC1", dto.VoucherID)
	assert.Equal(t, redemption.PurchaseStatusRedeemed, dto.Status)
	assert.NotEqual(t, uuid.Nil, dto.PurchaseID, "purchase_id must be generated")
	assert.False(t, dto.PurchaseDate.IsZero())

	// Exactly one purchase, no pending offer, voucher flipped to redeemed.
	assert.Len(t, repo.purchases, 1)
	held, _ := repo.HasOffer(context.Background(), "M1", "VC1")
	assert.False(t, held)
	assert.Equal(t, voucher.StatusRedeemed, repo.vouchers["VC1"].Status())

	// Post-commit side effects fired once.
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, 1, notifier.receipts)
}

func TestClaimVoucher_MissingInput(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newService(repo)

	for _, req := range []application.ClaimVoucherRequest{
		{MemberID: "", VoucherID: "VC1"},
		{MemberID: "M1", VoucherID: ""},
		{MemberID: "   ", VoucherID: "VC1"},
		{MemberID: "M1", VoucherID: "\t "},
		{},
	} {
		_, err := svc.ClaimVoucher(context.Background(), req)
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.ErrValidation), "req=%+v", req)
		assert.Equal(t, application.MsgMissingInput, err.(*domain.DomainError).Message)
	}

	// Validation failures never reach the datastore.
	assert.Equal(t, 0, repo.touches)
}

func TestClaimVoucher_VoucherNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc, publisher, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "NOPE"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
	assert.Empty(t, repo.purchases)
	assert.Empty(t, publisher.events)
}

func TestClaimVoucher_NotActive(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC1", voucher.StatusRedeemed, nil)
	repo.putOffer("M1", "VC1")
	svc, _, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
	assert.Equal(t, application.MsgNotActive, err.(*domain.DomainError).Message)
	assert.Empty(t, repo.purchases)
}

func TestClaimVoucher_Expired(t *testing.T) {
	repo := newMemoryRepo()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	repo.putVoucher("VC1", voucher.StatusActive, &yesterday)
	repo.putOffer("M1", "VC1")
	svc, _, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
	assert.Equal(t, application.MsgExpired, err.(*domain.DomainError).Message)
	assert.Empty(t, repo.purchases)
	// Nothing was consumed: the offer is still pending.
	held, _ := repo.HasOffer(context.Background(), "M1", "VC1")
	assert.True(t, held)
}

func TestClaimVoucher_ExpiresTodaySucceeds(t *testing.T) {
	repo := newMemoryRepo()
	today := time.Now().UTC()
	repo.putVoucher("VC1", voucher.StatusActive, &today)
	repo.putOffer("M1", "VC1")
	svc, _, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.NoError(t, err, "expiration boundary is inclusive of today")
}

func TestClaimVoucher_NotInUpcomingList(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC2", voucher.StatusActive, futureDate())
	svc, _, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC2"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
	assert.Equal(t, application.MsgNotInList, err.(*domain.DomainError).Message)
	assert.Empty(t, repo.purchases)
}

func TestClaimVoucher_RepeatClaimFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC1", voucher.StatusActive, futureDate())
	repo.putOffer("M1", "VC1")
	svc, _, _ := newService(repo)

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.NoError(t, err)

	// The voucher is redeemed now; both repeats report "not active" and no
	// second purchase appears.
	for i := 0; i < 2; i++ {
		_, err = svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
		require.Error(t, err)
		assert.Equal(t, application.MsgNotActive, err.(*domain.DomainError).Message)
	}
	assert.Len(t, repo.purchases, 1)
}

func TestClaimVoucher_TrimsInput(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC1", voucher.StatusActive, nil)
	repo.putOffer("M1", "VC1")
	svc, _, _ := newService(repo)

	dto, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: " M1 ", VoucherID: " VC1\n"})
	require.NoError(t, err)
	assert.Equal(t, "M1", dto.MemberID)
	assert.Equal(t, "VC1", dto.VoucherID)
}

// corruptRowRepo simulates a voucher row whose stored status is outside the
// closed enumeration.
type corruptRowRepo struct {
	redemption.Repository
}

func (r corruptRowRepo) InTx(ctx context.Context, fn func(tx redemption.Repository) error) error {
	return fn(r)
}

func (r corruptRowRepo) LockVoucher(ctx context.Context, voucherID string) (*voucher.Voucher, error) {
	return nil, domain.NewDataIntegrityError(`unrecognized voucher status: "canceled"`)
}

func TestClaimVoucher_UnknownStoredStatus(t *testing.T) {
	publisher := &capturePublisher{}
	svc := application.NewRedemptionService(corruptRowRepo{}, publisher, &captureNotifier{}, zap.NewNop())

	_, err := svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.Error(t, err)
	// A corrupt row must not read as "not active"; it is an integrity failure.
	assert.True(t, domain.IsKind(err, domain.ErrDataIntegrity))
	assert.False(t, domain.IsKind(err, domain.ErrInvalidState))
	assert.Empty(t, publisher.events)
}

func TestListUpcomingAndPurchases(t *testing.T) {
	repo := newMemoryRepo()
	repo.putVoucher("VC1", voucher.StatusActive, futureDate())
	repo.putVoucher("VC2", voucher.StatusActive, nil)
	repo.putOffer("M1", "VC1")
	repo.putOffer("M1", "VC2")
	svc, _, _ := newService(repo)

	upcoming, err := svc.ListUpcomingVouchers(context.Background(), "M1")
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	_, err = svc.ClaimVoucher(context.Background(), application.ClaimVoucherRequest{MemberID: "M1", VoucherID: "VC1"})
	require.NoError(t, err)

	upcoming, err = svc.ListUpcomingVouchers(context.Background(), "M1")
	require.NoError(t, err)
	assert.Len(t, upcoming, 1)

	purchases, err := svc.ListMemberPurchases(context.Background(), "M1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "VC1", purchases[0].VoucherID)

	stats, err := svc.GetPurchaseStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalPurchases)
	assert.Equal(t, int64(1), stats.ByStatus[redemption.PurchaseStatusRedeemed])
}
