package resolver

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leadvault/auction-engine/database/orm"
)

// Buy-It-Now terms applied when no bid clears reserve: the lead is
// offered for direct purchase at reserve times the markup, for the
// grace period.
var buyNowMarkup = decimal.RequireFromString("1.25")

const buyNowGrace = 7 * 24 * time.Hour

// Outcome is the pure decision of one auction closure: either a sale
// with a winner (and possibly a tied candidate set for the oracle), or
// a conversion to the Buy-It-Now bin.
type Outcome struct {
	Sale bool

	// Winner is the accepted bid. For N>=2 top ties this is the
	// deterministic fallback: earliest created among the tied set.
	Winner *orm.Bid

	// TieCandidates holds the distinct wallet addresses of the bids
	// tied at the top effective amount, in ranking order. Empty unless
	// at least two bids tied.
	TieCandidates []string

	// BuyNowPrice and BuyNowExpires are set when Sale is false and the
	// lead carries a reserve to derive a direct-purchase price from.
	BuyNowPrice   decimal.NullDecimal
	BuyNowExpires time.Time
}

// effective returns the ranking amount of a revealed bid.
func effective(b *orm.Bid) decimal.Decimal {
	if b.EffectiveBid.Valid {
		return b.EffectiveBid.Decimal
	}

	return b.Amount.Decimal
}

// rankBids orders revealed bids by effective bid desc, holder status
// desc, raw amount desc, then created time asc. The order decides the
// unique-top winner and the presentation ranking; the tie fallback has
// its own rule.
func rankBids(bids []orm.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		ei, ej := effective(&bids[i]), effective(&bids[j])
		if c := ei.Cmp(ej); c != 0 {
			return c > 0
		}

		if bids[i].IsHolder != bids[j].IsHolder {
			return bids[i].IsHolder
		}

		if c := bids[i].Amount.Decimal.Cmp(bids[j].Amount.Decimal); c != 0 {
			return c > 0
		}

		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}

// meetsReserve applies the reserve filter on the raw amount.
func meetsReserve(lead *orm.Lead, b *orm.Bid) bool {
	if !lead.ReservePrice.Valid {
		return true
	}

	return b.Amount.Decimal.GreaterThanOrEqual(lead.ReservePrice.Decimal)
}

// DecideOutcome ranks the revealed bids of a lead and picks the closure
// outcome. Pure: no clock reads, no I/O; now is injected for the
// Buy-It-Now expiry.
func DecideOutcome(lead *orm.Lead, revealed []orm.Bid, now time.Time) Outcome {
	eligible := make([]orm.Bid, 0, len(revealed))
	for _, b := range revealed {
		if !b.Amount.Valid {
			continue
		}

		if meetsReserve(lead, &b) {
			eligible = append(eligible, b)
		}
	}

	if len(eligible) == 0 {
		out := Outcome{
			Sale:          false,
			BuyNowExpires: now.Add(buyNowGrace),
		}
		if lead.ReservePrice.Valid {
			out.BuyNowPrice = decimal.NullDecimal{
				Valid:   true,
				Decimal: lead.ReservePrice.Decimal.Mul(buyNowMarkup).Round(2),
			}
		}
		return out
	}

	rankBids(eligible)

	top := effective(&eligible[0])
	tied := []orm.Bid{eligible[0]}
	for _, b := range eligible[1:] {
		if effective(&b).Equal(top) {
			tied = append(tied, b)
		} else {
			break
		}
	}

	if len(tied) == 1 {
		winner := eligible[0]
		return Outcome{Sale: true, Winner: &winner}
	}

	// Deterministic fallback among the tied set: earliest created bid
	// wins, id as the final tie key. The oracle may later name a
	// different candidate, which is recorded as provenance only.
	winner := tied[0]
	for _, b := range tied[1:] {
		if b.CreatedAt.Before(winner.CreatedAt) ||
			(b.CreatedAt.Equal(winner.CreatedAt) && b.ID < winner.ID) {
			winner = b
		}
	}

	seen := map[string]bool{}
	candidates := make([]string, 0, len(tied))
	for _, b := range tied {
		if b.WalletAddress == "" || seen[b.WalletAddress] {
			continue
		}
		seen[b.WalletAddress] = true
		candidates = append(candidates, b.WalletAddress)
	}

	return Outcome{
		Sale:          true,
		Winner:        &winner,
		TieCandidates: candidates,
	}
}
