package resolver

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
	"github.com/leadvault/auction-engine/events"
	"github.com/leadvault/auction-engine/pricing"
)

// errLostRace aborts an outcome commit whose conditional lead update
// matched zero rows: a concurrent sweep already moved the lead out of
// IN_AUCTION. Not an error, the other resolver's outcome stands.
var errLostRace = errors.New("lead no longer in auction")

// resolveOne runs the closure algorithm for a single lead: reveal,
// rank, select, commit, then settlement, bounty release and refunds.
// Every failure is contained to this lead; the enclosing sweep
// continues regardless.
func (r *Resolver) resolveOne(ctx context.Context, leadID uint64) bool {
	lead := &orm.Lead{}
	if err := r.db.WithContext(ctx).First(lead, leadID).Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": leadID,
			"error":   err,
		}).Error("fail load lead for resolution")
		return false
	}

	if lead.Status != orm.LeadInAuction {
		return false
	}

	if err := r.revealPendingBids(ctx, lead); err != nil {
		log.WithFields(log.Fields{
			"lead_id": leadID,
			"error":   err,
		}).Error("fail reveal pending bids")
		return false
	}

	var revealed []orm.Bid
	if err := r.db.WithContext(ctx).Model(&orm.Bid{}).
		Where("lead_id = ? AND status = ? AND amount IS NOT NULL",
			leadID, orm.BidRevealed).
		Order("created_at ASC").
		Find(&revealed).
		Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": leadID,
			"error":   err,
		}).Error("fail load revealed bids")
		return false
	}

	out := DecideOutcome(lead, revealed, r.now())
	if !out.Sale {
		return r.commitNoSale(ctx, lead, out)
	}

	return r.commitSale(ctx, lead, out)
}

// forceCloseOne closes an orphaned auction with no winner: no reveal,
// no ranking, no settlement.
func (r *Resolver) forceCloseOne(ctx context.Context, leadID uint64) bool {
	lead := &orm.Lead{}
	if err := r.db.WithContext(ctx).First(lead, leadID).Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": leadID,
			"error":   err,
		}).Error("fail load stuck lead")
		return false
	}

	if lead.Status != orm.LeadInAuction {
		return false
	}

	return r.commitNoSale(ctx, lead, DecideOutcome(lead, nil, r.now()))
}

// revealPendingBids auto-reveals every pending bid of the lead. A bid
// with a plaintext amount is revealed directly; a sealed one is
// unsealed, and a malformed commitment expires the bid. A pending bid
// with neither amount nor commitment is left for the outcome commit to
// expire. The effective bid is computed once here and persisted, so
// ranking later reads exactly the reveal-time value.
func (r *Resolver) revealPendingBids(ctx context.Context, lead *orm.Lead) error {
	var pending []orm.Bid
	if err := r.db.WithContext(ctx).Model(&orm.Bid{}).
		Where("lead_id = ? AND status = ?", lead.ID, orm.BidPending).
		Find(&pending).
		Error; err != nil {
		return err
	}

	for _, b := range pending {
		amount := b.Amount

		if !amount.Valid {
			if b.Commitment == "" {
				continue
			}

			rev := Unseal(b.Commitment)
			if rev.State == RevealExpired {
				log.WithField("bid_id", b.ID).Warn("malformed commitment, expiring bid")
				if err := r.db.Model(&orm.Bid{}).
					Where("id = ? AND status = ?", b.ID, orm.BidPending).
					Update("status", orm.BidExpired).
					Error; err != nil {
					return err
				}
				continue
			}

			amount.Valid = true
			amount.Decimal = rev.Amount
		}

		perk := r.perks.Resolve(ctx, lead.VerticalSlug, b.WalletAddress)
		eff := pricing.EffectiveBid(amount.Decimal, perk)

		if err := r.db.Model(&orm.Bid{}).
			Where("id = ? AND status = ?", b.ID, orm.BidPending).
			Updates(map[string]interface{}{
				"status":        orm.BidRevealed,
				"amount":        amount,
				"effective_bid": eff,
				"is_holder":     perk.IsHolder,
			}).Error; err != nil {
			return err
		}
	}

	return nil
}

// commitNoSale converts the lead to the Buy-It-Now bin: no bid cleared
// reserve (or the auction was orphaned). No money moves.
func (r *Resolver) commitNoSale(ctx context.Context, lead *orm.Lead, out Outcome) bool {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orm.Lead{}).
			Where("id = ? AND status = ?", lead.ID, orm.LeadInAuction).
			Updates(map[string]interface{}{
				"status":         orm.LeadUnsold,
				"buy_now_price":  out.BuyNowPrice,
				"expires_at":     out.BuyNowExpires,
				"auction_end_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLostRace
		}

		if err := tx.Model(&orm.AuctionRoom{}).
			Where("lead_id = ? AND phase = ?", lead.ID, orm.RoomBidding).
			Update("phase", orm.RoomCancelled).
			Error; err != nil {
			return err
		}

		return tx.Model(&orm.Bid{}).
			Where("lead_id = ? AND status IN ?",
				lead.ID, []orm.BidStatus{orm.BidPending, orm.BidRevealed}).
			Update("status", orm.BidExpired).
			Error
	})

	if errors.Is(err, errLostRace) {
		log.WithField("lead_id", lead.ID).Info("lead already resolved elsewhere")
		return false
	}

	if err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Error("fail commit unsold conversion")
		return false
	}

	buyNow := ""
	if out.BuyNowPrice.Valid {
		buyNow = out.BuyNowPrice.Decimal.String()
	}

	r.broadcaster.Publish(events.LeadUnsold, map[string]interface{}{
		"lead_id":       lead.ID,
		"buy_now_price": buyNow,
		"expires_at":    out.BuyNowExpires,
	})
	r.broadcaster.Publish(events.LeadStatusChanged, map[string]interface{}{
		"lead_id": lead.ID,
		"status":  orm.LeadUnsold.String(),
	})
	r.analytics.Track(events.TrackUnsoldBinCreated, map[string]interface{}{
		"lead_id":       lead.ID,
		"buy_now_price": buyNow,
	})

	log.WithField("lead_id", lead.ID).Info("lead converted to buy-now")
	return true
}

// commitSale writes the auction outcome in one transaction keyed on the
// lead still being IN_AUCTION, then runs the money movement steps. The
// outcome commit is the only step that may not fail partially; the
// later steps are independently fault isolated and retryable.
func (r *Resolver) commitSale(ctx context.Context, lead *orm.Lead, out Outcome) bool {
	winner := out.Winner
	fees := pricing.CalcFees(winner.Amount.Decimal, winner.Source)
	soldAt := r.now()

	txRow := &orm.Transaction{
		LeadID:         lead.ID,
		BidID:          winner.ID,
		BuyerID:        winner.BuyerID,
		Amount:         winner.Amount.Decimal,
		PlatformFee:    fees.Platform,
		ConvenienceFee: fees.Convenience,
		FeeType:        fees.FeeType,
		Status:         orm.TxPending,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orm.Lead{}).
			Where("id = ? AND status = ?", lead.ID, orm.LeadInAuction).
			Updates(map[string]interface{}{
				"status":         orm.LeadSold,
				"winning_bid":    winner.Amount,
				"sold_at":        soldAt,
				"auction_end_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLostRace
		}

		if err := tx.Model(&orm.Bid{}).
			Where("id = ? AND status = ?", winner.ID, orm.BidRevealed).
			Update("status", orm.BidAccepted).
			Error; err != nil {
			return err
		}

		if err := tx.Model(&orm.Bid{}).
			Where("lead_id = ? AND id <> ? AND status = ?",
				lead.ID, winner.ID, orm.BidRevealed).
			Update("status", orm.BidOutbid).
			Error; err != nil {
			return err
		}

		if err := tx.Model(&orm.Bid{}).
			Where("lead_id = ? AND status = ?", lead.ID, orm.BidPending).
			Update("status", orm.BidExpired).
			Error; err != nil {
			return err
		}

		if err := tx.Model(&orm.AuctionRoom{}).
			Where("lead_id = ? AND phase = ?", lead.ID, orm.RoomBidding).
			Updates(map[string]interface{}{
				"phase":          orm.RoomResolved,
				"winning_bid_id": winner.ID,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&orm.Transaction{}).Create(txRow).Error
	})

	if errors.Is(err, errLostRace) {
		log.WithField("lead_id", lead.ID).Info("lead already resolved elsewhere")
		return false
	}

	if err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Error("fail commit auction outcome")
		return false
	}

	r.requestTieBreak(ctx, lead, out)
	r.settleWinner(ctx, lead, winner, txRow)
	r.bounty.MatchAndRelease(ctx, lead, winner.Amount.Decimal)
	r.refundLosers(ctx, lead.ID)

	r.broadcaster.Publish(events.AuctionResolved, map[string]interface{}{
		"lead_id":     lead.ID,
		"bid_id":      winner.ID,
		"buyer_id":    winner.BuyerID,
		"winning_bid": winner.Amount.Decimal.String(),
		"sold_at":     soldAt,
	})
	r.broadcaster.Publish(events.LeadStatusChanged, map[string]interface{}{
		"lead_id": lead.ID,
		"status":  orm.LeadSold.String(),
	})
	r.analytics.Track(events.TrackAuctionResolved, map[string]interface{}{
		"lead_id":     lead.ID,
		"winning_bid": winner.Amount.Decimal.String(),
		"source":      winner.Source.String(),
		"tie_break":   len(out.TieCandidates) >= 2,
	})

	log.WithFields(log.Fields{
		"lead_id":     lead.ID,
		"bid_id":      winner.ID,
		"winning_bid": winner.Amount.Decimal.String(),
	}).Info("auction resolved")
	return true
}

// requestTieBreak fires the asynchronous VRF request for a tied top and
// starts the detached fulfillment watcher. The deterministic fallback
// winner is already committed; the oracle answer only annotates the
// room.
func (r *Resolver) requestTieBreak(ctx context.Context, lead *orm.Lead, out Outcome) {
	if len(out.TieCandidates) < 2 || !r.oracle.Configured() {
		return
	}

	txHash, err := r.oracle.RequestTieBreak(ctx, lead.ID, out.TieCandidates, "auction_tie")
	if err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Warn("vrf tie-break request failed, fallback winner stands")
		return
	}

	if err := r.db.Model(&orm.AuctionRoom{}).
		Where("lead_id = ? AND phase = ?", lead.ID, orm.RoomResolved).
		Update("vrf_request_id", txHash).
		Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Error("fail record vrf request")
	}

	r.broadcaster.Publish(events.VRFRequested, map[string]interface{}{
		"lead_id":    lead.ID,
		"tx_hash":    txHash,
		"candidates": out.TieCandidates,
	})

	// Detached: the watcher outlives this closure pass.
	r.oracle.StartResolutionWatcher(context.Background(), lead.ID, r.db, r.broadcaster)
}

// settleWinner moves the winner's locked funds to the seller. Failure
// is logged and non-fatal: the committed outcome stands and settlement
// is retried out of band.
func (r *Resolver) settleWinner(
	ctx context.Context,
	lead *orm.Lead,
	winner *orm.Bid,
	txRow *orm.Transaction,
) {
	if winner.EscrowLockRef == "" || lead.SellerAddress == "" {
		r.broadcaster.Publish(events.EscrowRequired, map[string]interface{}{
			"lead_id":  lead.ID,
			"bid_id":   winner.ID,
			"buyer_id": winner.BuyerID,
		})
		return
	}

	receipt, err := r.vault.Settle(
		ctx,
		winner.EscrowLockRef,
		lead.SellerAddress,
		winner.BuyerID,
		lead.ID,
	)
	if err != nil || !receipt.Success {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"bid_id":  winner.ID,
			"error":   err,
		}).Warn("vault settlement failed, outcome stands")
		return
	}

	if err := r.db.Model(&orm.Transaction{}).
		Where("id = ?", txRow.ID).
		Update("settlement_tx_ref", receipt.TxReference).
		Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": lead.ID,
			"error":   err,
		}).Error("fail record settlement reference")
	}
}

// refundLosers refunds every outbid sibling whose vault lock has not
// been refunded yet. The flag flips only after a confirmed refund, so
// invoking this again refunds only the bids whose earlier attempt
// failed and never refunds the same lock twice. Re-invocation is an
// operational concern; no sweep revisits sold leads on its own.
func (r *Resolver) refundLosers(ctx context.Context, leadID uint64) {
	var losers []orm.Bid
	if err := r.db.WithContext(ctx).Model(&orm.Bid{}).
		Where("lead_id = ? AND status = ? AND escrow_refunded = ? AND escrow_lock_ref <> ''",
			leadID, orm.BidOutbid, false).
		Find(&losers).
		Error; err != nil {
		log.WithFields(log.Fields{
			"lead_id": leadID,
			"error":   err,
		}).Error("fail load bids to refund")
		return
	}

	for _, b := range losers {
		receipt, err := r.vault.Refund(ctx, b.EscrowLockRef, b.BuyerID, leadID)
		if err != nil || !receipt.Success {
			log.WithFields(log.Fields{
				"lead_id": leadID,
				"bid_id":  b.ID,
				"error":   err,
			}).Warn("vault refund failed, will retry on a later sweep")
			continue
		}

		if err := r.db.Model(&orm.Bid{}).
			Where("id = ? AND escrow_refunded = ?", b.ID, false).
			Update("escrow_refunded", true).
			Error; err != nil {
			log.WithFields(log.Fields{
				"bid_id": b.ID,
				"error":  err,
			}).Error("fail flag refunded bid")
		}
	}
}
