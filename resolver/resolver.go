package resolver

import (
	"context"
	"time"

	"github.com/docker/go-units"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
	"github.com/leadvault/auction-engine/events"
	"github.com/leadvault/auction-engine/pricing"
	"github.com/leadvault/auction-engine/vault"
)

// settlementClient is the slice of the vault client the resolver needs.
type settlementClient interface {
	Settle(
		ctx context.Context,
		lockRef string,
		sellerAddress string,
		buyerID uint64,
		leadID uint64,
	) (*vault.Receipt, error)
	Refund(
		ctx context.Context,
		lockRef string,
		buyerID uint64,
		leadID uint64,
	) (*vault.Receipt, error)
}

// tieBreaker is the slice of the oracle client the resolver needs.
type tieBreaker interface {
	Configured() bool
	RequestTieBreak(
		ctx context.Context,
		leadID uint64,
		candidates []string,
		kind string,
	) (string, error)
	StartResolutionWatcher(
		ctx context.Context,
		leadID uint64,
		db *gorm.DB,
		broadcaster events.Broadcaster,
	)
}

// bountyReleaser matches a sold lead against bounty pools and pays the
// seller.
type bountyReleaser interface {
	MatchAndRelease(
		ctx context.Context,
		lead *orm.Lead,
		cappingAmount decimal.Decimal,
	) int
}

// Config defines the timing knobs of the resolution engine.
type Config struct {
	// SweepSeconds is the interval between timer driven sweeps.
	SweepSeconds uint64 `json:"sweep_seconds"`
	// SettleDelaySeconds is how long past its nominal end an auction
	// must be observed before it is closed. Guards against clock drift
	// and over-eager polling closing an auction early.
	SettleDelaySeconds uint64 `json:"settle_delay_seconds"`
	// StuckAfterSeconds is the staleness threshold past which an
	// IN_AUCTION lead is treated as orphaned and force closed.
	StuckAfterSeconds uint64 `json:"stuck_after_seconds"`
}

const (
	defaultSweepSeconds       = 15
	defaultSettleDelaySeconds = 58
	defaultStuckAfterSeconds  = 300
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.SweepSeconds == 0 {
		out.SweepSeconds = defaultSweepSeconds
	}
	if out.SettleDelaySeconds == 0 {
		out.SettleDelaySeconds = defaultSettleDelaySeconds
	}
	if out.StuckAfterSeconds == 0 {
		out.StuckAfterSeconds = defaultStuckAfterSeconds
	}
	return out
}

// Resolver closes elapsed auctions: reveals sealed bids, ranks them,
// picks the winner, commits the outcome and drives settlement, bounty
// release and loser refunds. All entry points are idempotent and safe
// under concurrent invocation from the timer loop, the HTTP read path
// and the startup sweep.
type Resolver struct {
	db          *gorm.DB
	vault       settlementClient
	oracle      tieBreaker
	bounty      bountyReleaser
	perks       pricing.PerkResolver
	broadcaster events.Broadcaster
	analytics   events.Analytics
	cfg         Config
	now         func() time.Time
	quit        chan struct{}
}

// New returns the new resolver instance.
func New(
	db *gorm.DB,
	vaultClient settlementClient,
	oracleClient tieBreaker,
	bountyMatcher bountyReleaser,
	perks pricing.PerkResolver,
	broadcaster events.Broadcaster,
	analytics events.Analytics,
	cfg Config,
) *Resolver {
	return &Resolver{
		db:          db,
		vault:       vaultClient,
		oracle:      oracleClient,
		bounty:      bountyMatcher,
		perks:       perks,
		broadcaster: broadcaster,
		analytics:   analytics,
		cfg:         cfg.withDefaults(),
		now:         time.Now,
		quit:        make(chan struct{}),
	}
}

// Run executes the startup sweep and then the timing task closing
// elapsed auctions until Stop is called or the context ends.
func (r *Resolver) Run(ctx context.Context) {
	r.sweepAll(ctx)

	ticker := time.NewTicker(time.Duration(r.cfg.SweepSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
		}

		r.sweepAll(ctx)
	}
}

// Stop exits the resolver run loop.
func (r *Resolver) Stop() {
	close(r.quit)
}

func (r *Resolver) sweepAll(ctx context.Context) {
	if _, err := r.SweepExpiredAuctions(ctx); err != nil {
		log.WithField("error", err).Error("sweep expired auctions failed")
	}

	if _, err := r.SweepStuckAuctions(ctx); err != nil {
		log.WithField("error", err).Error("sweep stuck auctions failed")
	}

	if _, err := r.SweepExpiredBuyNow(ctx); err != nil {
		log.WithField("error", err).Error("sweep expired buy-now failed")
	}
}

// SweepExpiredAuctions closes every auction observed at least the settle
// delay past its nominal end. Younger auctions are skipped this tick and
// picked up by a later sweep. Returns the number of leads resolved.
func (r *Resolver) SweepExpiredAuctions(ctx context.Context) (int, error) {
	now := r.now()
	cutoff := now.Add(-time.Duration(r.cfg.SettleDelaySeconds) * time.Second)

	var leads []orm.Lead
	if err := r.db.Model(&orm.Lead{}).
		Where("status = ? AND auction_end_at IS NOT NULL AND auction_end_at <= ?",
			orm.LeadInAuction, cutoff).
		Find(&leads).
		Error; err != nil {
		return 0, err
	}

	resolved := 0
	for _, lead := range leads {
		overdue := now.Sub(*lead.AuctionEndAt)
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"overdue": units.HumanDuration(overdue),
		}).Info("closing elapsed auction")

		if r.resolveOne(ctx, lead.ID) {
			resolved++
		}
	}

	return resolved, nil
}

// SweepStuckAuctions force closes leads stuck IN_AUCTION with no end
// time or one older than the staleness threshold, e.g. after a crash
// during auction creation. They close with no winner. Returns the
// number of leads closed.
func (r *Resolver) SweepStuckAuctions(ctx context.Context) (int, error) {
	staleBefore := r.now().Add(-time.Duration(r.cfg.StuckAfterSeconds) * time.Second)

	var leads []orm.Lead
	if err := r.db.Model(&orm.Lead{}).
		Where("status = ? AND (auction_end_at IS NULL OR auction_end_at < ?)",
			orm.LeadInAuction, staleBefore).
		Find(&leads).
		Error; err != nil {
		return 0, err
	}

	closed := 0
	for _, lead := range leads {
		log.WithField("lead_id", lead.ID).Warn("force closing stuck auction")
		if r.forceCloseOne(ctx, lead.ID) {
			closed++
		}
	}

	return closed, nil
}

// ResolveLead closes one lead's auction if its window plus the settle
// delay has elapsed. Used by the HTTP read path to resolve lazily when
// a reader observes an overdue auction; racing the timer sweep is safe.
func (r *Resolver) ResolveLead(ctx context.Context, leadID uint64) bool {
	lead := &orm.Lead{}
	if err := r.db.WithContext(ctx).First(lead, leadID).Error; err != nil {
		return false
	}

	if lead.Status != orm.LeadInAuction || lead.AuctionEndAt == nil {
		return false
	}

	cutoff := r.now().Add(-time.Duration(r.cfg.SettleDelaySeconds) * time.Second)
	if lead.AuctionEndAt.After(cutoff) {
		return false
	}

	return r.resolveOne(ctx, lead.ID)
}

// SweepExpiredBuyNow expires UNSOLD leads whose direct purchase window
// has lapsed. No settlement logic; each lead expires through its own
// conditional update so a concurrent direct purchase keeps its lead and
// every expired lead gets its status event.
func (r *Resolver) SweepExpiredBuyNow(ctx context.Context) (int64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).Model(&orm.Lead{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			orm.LeadUnsold, r.now()).
		Pluck("id", &ids).
		Error; err != nil {
		return 0, err
	}

	var expired int64
	for _, id := range ids {
		res := r.db.WithContext(ctx).Model(&orm.Lead{}).
			Where("id = ? AND status = ?", id, orm.LeadUnsold).
			Update("status", orm.LeadExpired)
		if res.Error != nil {
			log.WithFields(log.Fields{
				"lead_id": id,
				"error":   res.Error,
			}).Error("fail expire buy-now lead")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		expired++
		r.broadcaster.Publish(events.LeadStatusChanged, map[string]interface{}{
			"lead_id": id,
			"status":  orm.LeadExpired.String(),
		})
	}

	if expired > 0 {
		log.WithField("count", expired).Info("expired buy-now leads")
	}

	return expired, nil
}
