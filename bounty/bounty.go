package bounty

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
	"github.com/leadvault/auction-engine/events"
	"github.com/leadvault/auction-engine/vault"
)

// Release is one matched pool payout owed to the seller of a sold lead.
type Release struct {
	PoolID       uint64
	BuyerID      uint64
	Amount       decimal.Decimal
	VerticalSlug string
}

// Match walks the candidate pools in order and returns the releases a
// sold lead earns. Stacked releases never exceed cappingAmount in total;
// a pool contributes at most its per-lead amount and never more than its
// remaining balance.
func Match(pools []orm.BountyPool, lead *orm.Lead, cappingAmount decimal.Decimal) []Release {
	releases := []Release{}
	left := cappingAmount

	for _, pool := range pools {
		if left.LessThanOrEqual(decimal.Zero) {
			break
		}

		if !matches(&pool, lead) {
			continue
		}

		amount := decimal.Min(pool.PerLeadAmount, pool.Remaining, left)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		releases = append(releases, Release{
			PoolID:       pool.ID,
			BuyerID:      pool.BuyerID,
			Amount:       amount,
			VerticalSlug: pool.VerticalSlug,
		})
		left = left.Sub(amount)
	}

	return releases
}

func matches(pool *orm.BountyPool, lead *orm.Lead) bool {
	if !pool.Active {
		return false
	}

	if pool.VerticalSlug != lead.VerticalSlug {
		return false
	}

	if pool.GeoFilter != "" && pool.GeoFilter != lead.Geo {
		return false
	}

	return lead.QualityScore >= pool.MinQuality
}

// payoutClient is the slice of the vault client the releaser needs.
type payoutClient interface {
	ReleaseBounty(
		ctx context.Context,
		poolID uint64,
		leadID uint64,
		sellerAddress string,
		amount decimal.Decimal,
		verticalSlug string,
	) (*vault.Receipt, error)
}

// Matcher matches sold leads against active bounty pools and releases
// the matched amounts to the seller.
type Matcher struct {
	db          *gorm.DB
	payout      payoutClient
	broadcaster events.Broadcaster
}

// NewMatcher returns a new bounty matcher instance.
func NewMatcher(db *gorm.DB, payout payoutClient, broadcaster events.Broadcaster) *Matcher {
	return &Matcher{
		db:          db,
		payout:      payout,
		broadcaster: broadcaster,
	}
}

// MatchAndRelease finds the pools matching a sold lead and pays each
// matched amount to the seller, capped in total by cappingAmount. Every
// step is best effort: a failed reservation or payout skips that pool
// and never unwinds the sale. Returns the number of confirmed releases.
func (m *Matcher) MatchAndRelease(
	ctx context.Context,
	lead *orm.Lead,
	cappingAmount decimal.Decimal,
) int {
	var pools []orm.BountyPool
	if err := m.db.Model(&orm.BountyPool{}).
		Where("active = ? AND vertical_slug = ?", true, lead.VerticalSlug).
		Order("created_at ASC").
		Find(&pools).
		Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Error("fail load bounty pools")
		return 0
	}

	released := 0
	for _, r := range Match(pools, lead, cappingAmount) {
		if !m.reserve(r) {
			continue
		}

		receipt, err := m.payout.ReleaseBounty(
			ctx,
			r.PoolID,
			lead.ID,
			lead.SellerAddress,
			r.Amount,
			r.VerticalSlug,
		)
		if err != nil || !receipt.Success {
			log.WithFields(log.Fields{
				"lead_id": lead.ID,
				"pool_id": r.PoolID,
				"error":   err,
			}).Warn("bounty payout failed, restoring pool balance")
			m.restore(r)
			continue
		}

		released++
		m.broadcaster.Publish(events.BountyReleased, map[string]interface{}{
			"lead_id":       lead.ID,
			"pool_id":       r.PoolID,
			"buyer_id":      r.BuyerID,
			"amount":        r.Amount.String(),
			"vertical_slug": r.VerticalSlug,
			"tx_reference":  receipt.TxReference,
		})
	}

	return released
}

// reserve conditionally decrements the pool balance. Zero rows affected
// means the pool was drained by a concurrent release.
func (m *Matcher) reserve(r Release) bool {
	res := m.db.Model(&orm.BountyPool{}).
		Where("id = ? AND remaining >= ?", r.PoolID, r.Amount).
		Update("remaining", gorm.Expr("remaining - ?", r.Amount))
	if res.Error != nil {
		log.WithFields(log.Fields{
			"pool_id": r.PoolID,
			"error":   res.Error,
		}).Error("fail reserve bounty amount")
		return false
	}

	return res.RowsAffected > 0
}

func (m *Matcher) restore(r Release) {
	if err := m.db.Model(&orm.BountyPool{}).
		Where("id = ?", r.PoolID).
		Update("remaining", gorm.Expr("remaining + ?", r.Amount)).
		Error; err != nil {
		log.WithFields(log.Fields{
			"pool_id": r.PoolID,
			"error":   err,
		}).Error("fail restore bounty amount")
	}
}
