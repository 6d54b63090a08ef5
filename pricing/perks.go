package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Perk is the holder status of a buyer within a vertical. The multiplier
// is always >= 1, so an effective bid is never below the raw amount.
type Perk struct {
	IsHolder   bool
	Multiplier decimal.Decimal
}

// PerkResolver resolves the holder perk for a buyer wallet within a
// vertical. Resolution must be stable within one auction closure: the
// orchestrator computes the effective bid once at reveal time and persists
// it, ranking reads the stored value.
type PerkResolver interface {
	Resolve(ctx context.Context, vertical string, wallet string) Perk
}

var one = decimal.NewFromInt(1)

// EffectiveBid applies the holder multiplier to a raw amount. A
// multiplier below 1 is clamped so the effective bid never drops under
// the raw amount, whatever resolver produced the perk.
func EffectiveBid(amount decimal.Decimal, perk Perk) decimal.Decimal {
	if !perk.IsHolder || perk.Multiplier.LessThanOrEqual(one) {
		return amount
	}

	return amount.Mul(perk.Multiplier).Round(monetaryPrecision)
}

// HolderRegistry is a redis backed perk resolver. Holder flags are kept
// under holder:<vertical>:<wallet> keys maintained by the NFT custody
// service; a missing key means not a holder.
type HolderRegistry struct {
	rdb        *redis.Client
	multiplier decimal.Decimal
}

// NewHolderRegistry returns a registry resolving perks against redis
// with the given holder multiplier.
func NewHolderRegistry(rdb *redis.Client, multiplier decimal.Decimal) *HolderRegistry {
	if multiplier.LessThan(one) {
		multiplier = one
	}

	return &HolderRegistry{
		rdb:        rdb,
		multiplier: multiplier,
	}
}

// Resolve looks up the holder flag for the wallet in the vertical.
// A registry failure degrades to non-holder rather than blocking closure.
func (h *HolderRegistry) Resolve(ctx context.Context, vertical string, wallet string) Perk {
	if wallet == "" {
		return Perk{IsHolder: false, Multiplier: one}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("holder:%s:%s", vertical, wallet)
	val, err := h.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return Perk{IsHolder: false, Multiplier: one}
	}

	if err != nil {
		log.WithFields(log.Fields{
			"vertical": vertical,
			"wallet":   wallet,
			"error":    err,
		}).Warn("holder registry lookup failed, treating as non-holder")
		return Perk{IsHolder: false, Multiplier: one}
	}

	if val != "1" {
		return Perk{IsHolder: false, Multiplier: one}
	}

	return Perk{IsHolder: true, Multiplier: h.multiplier}
}

// StaticPerks is a fixed in-memory perk table keyed by
// "<vertical>:<wallet>", used when no registry is configured and in tests.
type StaticPerks struct {
	Holders    map[string]bool
	Multiplier decimal.Decimal
}

// Resolve returns the perk recorded in the static table.
func (s *StaticPerks) Resolve(_ context.Context, vertical string, wallet string) Perk {
	if s.Holders[vertical+":"+wallet] {
		return Perk{IsHolder: true, Multiplier: s.Multiplier}
	}

	return Perk{IsHolder: false, Multiplier: one}
}
