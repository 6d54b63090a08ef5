package resolver

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/leadvault/auction-engine/database/orm"
)

var closureTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Valid: true, Decimal: decimal.RequireFromString(s)}
}

func leadWithReserve(reserve string) *orm.Lead {
	l := &orm.Lead{ID: 1, VerticalSlug: "solar"}
	if reserve != "" {
		l.ReservePrice = nd(reserve)
	}
	return l
}

func revealedBid(id uint64, amount, effective string, holder bool, createdAt time.Time) orm.Bid {
	return orm.Bid{
		ID:           id,
		LeadID:       1,
		BuyerID:      id,
		Amount:       nd(amount),
		EffectiveBid: nd(effective),
		IsHolder:     holder,
		Status:       orm.BidRevealed,
		CreatedAt:    createdAt,
	}
}

func TestDecideOutcomeNoBids(t *testing.T) {
	out := DecideOutcome(leadWithReserve("100"), nil, closureTime)

	check.False(t, out.Sale)
	check.True(t, out.BuyNowPrice.Valid)
	check.Equal(t, "125", out.BuyNowPrice.Decimal.String())
	check.Equal(t, closureTime.Add(7*24*time.Hour), out.BuyNowExpires)
}

func TestDecideOutcomeNoneMeetReserve(t *testing.T) {
	bids := []orm.Bid{
		revealedBid(1, "80", "80", false, closureTime.Add(-2*time.Minute)),
		revealedBid(2, "90", "90", false, closureTime.Add(-time.Minute)),
	}

	out := DecideOutcome(leadWithReserve("100"), bids, closureTime)

	check.False(t, out.Sale)
	check.Nil(t, out.Winner)
	check.Equal(t, "125", out.BuyNowPrice.Decimal.String())
}

func TestDecideOutcomeNoReserveNoBuyNowPrice(t *testing.T) {
	out := DecideOutcome(leadWithReserve(""), nil, closureTime)

	check.False(t, out.Sale)
	check.False(t, out.BuyNowPrice.Valid)
}

func TestDecideOutcomeSingleBidAboveReserve(t *testing.T) {
	bids := []orm.Bid{
		revealedBid(1, "75", "75", false, closureTime.Add(-time.Minute)),
	}

	out := DecideOutcome(leadWithReserve("50"), bids, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(1), out.Winner.ID)
	check.Equal(t, 0, len(out.TieCandidates))
}

func TestDecideOutcomeReserveFiltersLowBids(t *testing.T) {
	bids := []orm.Bid{
		revealedBid(1, "40", "48", true, closureTime.Add(-3*time.Minute)),
		revealedBid(2, "60", "60", false, closureTime.Add(-2*time.Minute)),
	}

	// Bid 1's effective bid clears reserve but its raw amount does not;
	// reserve is enforced on the raw amount.
	out := DecideOutcome(leadWithReserve("45"), bids, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(2), out.Winner.ID)
}

func TestDecideOutcomeRankingKeys(t *testing.T) {
	bids := []orm.Bid{
		revealedBid(1, "100", "110", false, closureTime.Add(-3*time.Minute)),
		revealedBid(2, "100", "120", false, closureTime.Add(-2*time.Minute)),
		revealedBid(3, "90", "90", false, closureTime.Add(-time.Minute)),
	}

	out := DecideOutcome(leadWithReserve("50"), bids, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(2), out.Winner.ID)
	check.Equal(t, 0, len(out.TieCandidates))
}

func TestDecideOutcomeTieFallbackEarliestCreated(t *testing.T) {
	earlier := closureTime.Add(-5 * time.Minute)
	later := closureTime.Add(-time.Minute)

	// Two bids tied at effective 120: a holder bid of 100 boosted 1.2x
	// and a raw 120. The raw bid arrived first and takes the fallback
	// win despite the holder ranking key.
	holderBid := revealedBid(1, "100", "120", true, later)
	holderBid.WalletAddress = "0xaaa"
	rawBid := revealedBid(2, "120", "120", false, earlier)
	rawBid.WalletAddress = "0xbbb"

	out := DecideOutcome(leadWithReserve("50"), []orm.Bid{holderBid, rawBid}, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(2), out.Winner.ID)
	check.Equal(t, 2, len(out.TieCandidates))
	check.Equal(t, "0xaaa", out.TieCandidates[0])
	check.Equal(t, "0xbbb", out.TieCandidates[1])
}

func TestDecideOutcomeTieSameWallet(t *testing.T) {
	a := revealedBid(1, "120", "120", false, closureTime.Add(-2*time.Minute))
	a.WalletAddress = "0xaaa"
	b := revealedBid(2, "120", "120", false, closureTime.Add(-time.Minute))
	b.WalletAddress = "0xaaa"

	out := DecideOutcome(leadWithReserve(""), []orm.Bid{a, b}, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(1), out.Winner.ID)
	// A single distinct address leaves nothing for the oracle to pick.
	check.Equal(t, 1, len(out.TieCandidates))
}

func TestDecideOutcomeThreeWayTie(t *testing.T) {
	mk := func(id uint64, wallet string, offset time.Duration) orm.Bid {
		b := revealedBid(id, "100", "100", false, closureTime.Add(offset))
		b.WalletAddress = wallet
		return b
	}

	out := DecideOutcome(leadWithReserve("50"), []orm.Bid{
		mk(1, "0xaaa", -time.Minute),
		mk(2, "0xbbb", -3*time.Minute),
		mk(3, "0xccc", -2*time.Minute),
	}, closureTime)

	check.True(t, out.Sale)
	check.Equal(t, uint64(2), out.Winner.ID)
	check.Equal(t, 3, len(out.TieCandidates))
}

func TestDecideOutcomeAtMostOneWinner(t *testing.T) {
	bids := []orm.Bid{
		revealedBid(1, "100", "100", false, closureTime.Add(-time.Minute)),
		revealedBid(2, "100", "100", false, closureTime.Add(-time.Minute)),
	}

	out := DecideOutcome(leadWithReserve(""), bids, closureTime)

	check.True(t, out.Sale)
	check.NotNil(t, out.Winner)
	// Equal created times fall back to the lower id.
	check.Equal(t, uint64(1), out.Winner.ID)
}

func TestDecideOutcomeSkipsUnrevealedAmounts(t *testing.T) {
	blank := orm.Bid{ID: 9, LeadID: 1, Status: orm.BidRevealed, CreatedAt: closureTime}

	out := DecideOutcome(leadWithReserve("10"), []orm.Bid{blank}, closureTime)

	check.False(t, out.Sale)
}
