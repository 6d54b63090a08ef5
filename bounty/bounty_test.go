package bounty

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/leadvault/auction-engine/database/orm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func solarLead() *orm.Lead {
	return &orm.Lead{
		ID:           1,
		VerticalSlug: "solar",
		Geo:          "TX",
		QualityScore: 80,
	}
}

func TestMatchFilters(t *testing.T) {
	pools := []orm.BountyPool{
		{ID: 1, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("10"), Remaining: dec("100")},
		{ID: 2, Active: false, VerticalSlug: "solar", PerLeadAmount: dec("10"), Remaining: dec("100")},
		{ID: 3, Active: true, VerticalSlug: "hvac", PerLeadAmount: dec("10"), Remaining: dec("100")},
		{ID: 4, Active: true, VerticalSlug: "solar", GeoFilter: "CA", PerLeadAmount: dec("10"), Remaining: dec("100")},
		{ID: 5, Active: true, VerticalSlug: "solar", MinQuality: 90, PerLeadAmount: dec("10"), Remaining: dec("100")},
		{ID: 6, Active: true, VerticalSlug: "solar", GeoFilter: "TX", PerLeadAmount: dec("15"), Remaining: dec("100")},
	}

	releases := Match(pools, solarLead(), dec("500"))

	check.Equal(t, 2, len(releases))
	check.Equal(t, uint64(1), releases[0].PoolID)
	check.Equal(t, uint64(6), releases[1].PoolID)
	check.Equal(t, "15", releases[1].Amount.String())
}

func TestMatchStackingCap(t *testing.T) {
	pools := []orm.BountyPool{
		{ID: 1, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("60"), Remaining: dec("100")},
		{ID: 2, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("60"), Remaining: dec("100")},
		{ID: 3, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("60"), Remaining: dec("100")},
	}

	releases := Match(pools, solarLead(), dec("100"))

	// Cap equals the winning amount: 60 + 40, third pool gets nothing.
	check.Equal(t, 2, len(releases))
	check.Equal(t, "60", releases[0].Amount.String())
	check.Equal(t, "40", releases[1].Amount.String())
}

func TestMatchDrainedPool(t *testing.T) {
	pools := []orm.BountyPool{
		{ID: 1, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("25"), Remaining: dec("0")},
		{ID: 2, Active: true, VerticalSlug: "solar", PerLeadAmount: dec("25"), Remaining: dec("10")},
	}

	releases := Match(pools, solarLead(), dec("100"))

	check.Equal(t, 1, len(releases))
	check.Equal(t, uint64(2), releases[0].PoolID)
	check.Equal(t, "10", releases[0].Amount.String())
}

func TestMatchNoPools(t *testing.T) {
	check.Equal(t, 0, len(Match(nil, solarLead(), dec("100"))))
}
