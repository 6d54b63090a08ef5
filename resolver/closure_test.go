package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
	"github.com/leadvault/auction-engine/events"
	"github.com/leadvault/auction-engine/pricing"
	"github.com/leadvault/auction-engine/vault"
)

type fakeVault struct {
	settleErr bool
	refundErr bool
	settles   int
	refunds   int
}

func (f *fakeVault) Settle(
	_ context.Context,
	_ string,
	_ string,
	_ uint64,
	_ uint64,
) (*vault.Receipt, error) {
	f.settles++
	if f.settleErr {
		return nil, errors.New("vault unavailable")
	}

	return &vault.Receipt{Success: true, TxReference: "0xsettle"}, nil
}

func (f *fakeVault) Refund(
	_ context.Context,
	_ string,
	_ uint64,
	_ uint64,
) (*vault.Receipt, error) {
	f.refunds++
	if f.refundErr {
		return nil, errors.New("vault unavailable")
	}

	return &vault.Receipt{Success: true, TxReference: "0xrefund"}, nil
}

type fakeBounty struct {
	calls int
}

func (f *fakeBounty) MatchAndRelease(
	context.Context,
	*orm.Lead,
	decimal.Decimal,
) int {
	f.calls++
	return 0
}

type recordingBroadcaster struct {
	published []string
}

func (b *recordingBroadcaster) Publish(event string, _ interface{}) {
	b.published = append(b.published, event)
}

func (b *recordingBroadcaster) count(event string) int {
	n := 0
	for _, e := range b.published {
		if e == event {
			n++
		}
	}
	return n
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.Nil(t, err)

	// A single connection keeps every session on the same in-memory
	// database.
	sqlDB, err := db.DB()
	assert.Nil(t, err)
	sqlDB.SetMaxOpenConns(1)

	assert.Nil(t, db.AutoMigrate(
		&orm.Lead{},
		&orm.Bid{},
		&orm.AuctionRoom{},
		&orm.Transaction{},
		&orm.BountyPool{},
	))

	return db
}

func newTestResolver(
	db *gorm.DB,
	vaultClient *fakeVault,
	broadcaster events.Broadcaster,
) *Resolver {
	return New(
		db,
		vaultClient,
		&fakeOracle{},
		&fakeBounty{},
		&pricing.StaticPerks{},
		broadcaster,
		events.NoopAnalytics{},
		Config{},
	)
}

func seedAuction(t *testing.T, db *gorm.DB, reserve string, endedAgo time.Duration) *orm.Lead {
	t.Helper()

	endAt := time.Now().Add(-endedAgo)
	lead := &orm.Lead{
		SellerID:      7,
		SellerAddress: "0xseller",
		VerticalSlug:  "solar",
		Geo:           "TX",
		QualityScore:  80,
		ReservePrice:  nd(reserve),
		Status:        orm.LeadInAuction,
		AuctionEndAt:  &endAt,
	}
	assert.Nil(t, db.Create(lead).Error)
	assert.Nil(t, db.Create(&orm.AuctionRoom{
		LeadID: lead.ID,
		Phase:  orm.RoomBidding,
	}).Error)

	return lead
}

func seedBid(t *testing.T, db *gorm.DB, leadID uint64, buyerID uint64, amount, lockRef string) *orm.Bid {
	t.Helper()

	bid := &orm.Bid{
		LeadID:        leadID,
		BuyerID:       buyerID,
		WalletAddress: "0xwallet",
		Amount:        nd(amount),
		Source:        orm.SourceManual,
		Status:        orm.BidPending,
		EscrowLockRef: lockRef,
	}
	assert.Nil(t, db.Create(bid).Error)

	return bid
}

func TestResolveSettlementFailureKeepsSale(t *testing.T) {
	db := newTestDB(t)
	lead := seedAuction(t, db, "100", 2*time.Minute)
	winner := seedBid(t, db, lead.ID, 11, "200", "lock-w")

	fv := &fakeVault{settleErr: true}
	broadcaster := &recordingBroadcaster{}
	r := newTestResolver(db, fv, broadcaster)

	check.True(t, r.resolveOne(context.Background(), lead.ID))
	check.Equal(t, 1, fv.settles)

	got := &orm.Lead{}
	assert.Nil(t, db.First(got, lead.ID).Error)
	check.Equal(t, orm.LeadSold, got.Status)
	check.Equal(t, "200", got.WinningBid.Decimal.String())

	gotBid := &orm.Bid{}
	assert.Nil(t, db.First(gotBid, winner.ID).Error)
	check.Equal(t, orm.BidAccepted, gotBid.Status)

	room := &orm.AuctionRoom{}
	assert.Nil(t, db.Where("lead_id = ?", lead.ID).First(room).Error)
	check.Equal(t, orm.RoomResolved, room.Phase)
	check.Equal(t, winner.ID, room.WinningBidID)

	// The failed settlement leaves the pending transaction without a
	// reference; the committed outcome is untouched.
	txRow := &orm.Transaction{}
	assert.Nil(t, db.Where("lead_id = ?", lead.ID).First(txRow).Error)
	check.Equal(t, orm.TxPending, txRow.Status)
	check.Equal(t, "", txRow.SettlementTxRef)

	check.Equal(t, 1, broadcaster.count(events.AuctionResolved))
	check.Equal(t, 1, broadcaster.count(events.LeadStatusChanged))
}

func TestRefundFlagFlipsOnlyOnConfirmedRefund(t *testing.T) {
	db := newTestDB(t)
	lead := seedAuction(t, db, "100", 2*time.Minute)
	seedBid(t, db, lead.ID, 11, "200", "lock-w")
	loser := seedBid(t, db, lead.ID, 12, "150", "lock-l")

	fv := &fakeVault{refundErr: true}
	r := newTestResolver(db, fv, &recordingBroadcaster{})

	check.True(t, r.resolveOne(context.Background(), lead.ID))
	check.Equal(t, 1, fv.refunds)

	got := &orm.Bid{}
	assert.Nil(t, db.First(got, loser.ID).Error)
	check.Equal(t, orm.BidOutbid, got.Status)
	check.False(t, got.EscrowRefunded)

	fv.refundErr = false
	r.refundLosers(context.Background(), lead.ID)
	check.Equal(t, 2, fv.refunds)

	assert.Nil(t, db.First(got, loser.ID).Error)
	check.True(t, got.EscrowRefunded)

	// Once the flag is set the bid drops out of the refund query.
	r.refundLosers(context.Background(), lead.ID)
	check.Equal(t, 2, fv.refunds)
}

func TestSweepResolvedLeadIsNoop(t *testing.T) {
	db := newTestDB(t)
	lead := seedAuction(t, db, "100", 2*time.Minute)
	seedBid(t, db, lead.ID, 11, "200", "lock-w")

	fv := &fakeVault{}
	r := newTestResolver(db, fv, &recordingBroadcaster{})

	resolved, err := r.SweepExpiredAuctions(context.Background())
	assert.Nil(t, err)
	check.Equal(t, 1, resolved)

	resolved, err = r.SweepExpiredAuctions(context.Background())
	assert.Nil(t, err)
	check.Equal(t, 0, resolved)

	check.False(t, r.resolveOne(context.Background(), lead.ID))
	check.Equal(t, 1, fv.settles)

	got := &orm.Lead{}
	assert.Nil(t, db.First(got, lead.ID).Error)
	check.Equal(t, orm.LeadSold, got.Status)
}

func TestResolveNoBidClearsReserveConvertsToBuyNow(t *testing.T) {
	db := newTestDB(t)
	lead := seedAuction(t, db, "100", 2*time.Minute)
	low := seedBid(t, db, lead.ID, 11, "80", "lock-l")

	fv := &fakeVault{}
	broadcaster := &recordingBroadcaster{}
	r := newTestResolver(db, fv, broadcaster)

	check.True(t, r.resolveOne(context.Background(), lead.ID))
	check.Equal(t, 0, fv.settles)

	got := &orm.Lead{}
	assert.Nil(t, db.First(got, lead.ID).Error)
	check.Equal(t, orm.LeadUnsold, got.Status)
	check.Equal(t, "125", got.BuyNowPrice.Decimal.String())
	check.NotNil(t, got.ExpiresAt)

	gotBid := &orm.Bid{}
	assert.Nil(t, db.First(gotBid, low.ID).Error)
	check.Equal(t, orm.BidExpired, gotBid.Status)

	room := &orm.AuctionRoom{}
	assert.Nil(t, db.Where("lead_id = ?", lead.ID).First(room).Error)
	check.Equal(t, orm.RoomCancelled, room.Phase)

	check.Equal(t, 1, broadcaster.count(events.LeadUnsold))
}

func TestSweepExpiredBuyNowEmitsStatusEvents(t *testing.T) {
	db := newTestDB(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired := &orm.Lead{VerticalSlug: "solar", Status: orm.LeadUnsold, ExpiresAt: &past}
	active := &orm.Lead{VerticalSlug: "solar", Status: orm.LeadUnsold, ExpiresAt: &future}
	assert.Nil(t, db.Create(expired).Error)
	assert.Nil(t, db.Create(active).Error)

	broadcaster := &recordingBroadcaster{}
	r := newTestResolver(db, &fakeVault{}, broadcaster)

	count, err := r.SweepExpiredBuyNow(context.Background())
	assert.Nil(t, err)
	check.Equal(t, int64(1), count)
	check.Equal(t, 1, broadcaster.count(events.LeadStatusChanged))

	got := &orm.Lead{}
	assert.Nil(t, db.First(got, expired.ID).Error)
	check.Equal(t, orm.LeadExpired, got.Status)

	got = &orm.Lead{}
	assert.Nil(t, db.First(got, active.ID).Error)
	check.Equal(t, orm.LeadUnsold, got.Status)
}
