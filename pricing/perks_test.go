package pricing

import (
	"context"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestEffectiveBid(t *testing.T) {
	multiplier := decimal.RequireFromString("1.2")

	testCases := []struct {
		name   string
		amount string
		perk   Perk
		want   string
	}{
		{
			name:   "non holder keeps raw amount",
			amount: "100.00",
			perk:   Perk{IsHolder: false, Multiplier: one},
			want:   "100",
		},
		{
			name:   "holder multiplier raises amount",
			amount: "100.00",
			perk:   Perk{IsHolder: true, Multiplier: multiplier},
			want:   "120",
		},
		{
			name:   "holder multiplier rounds to cents",
			amount: "33.33",
			perk:   Perk{IsHolder: true, Multiplier: multiplier},
			want:   "40",
		},
		{
			name:   "sub-one multiplier is clamped",
			amount: "100.00",
			perk:   Perk{IsHolder: true, Multiplier: decimal.RequireFromString("0.8")},
			want:   "100",
		},
		{
			name:   "zero multiplier is clamped",
			amount: "100.00",
			perk:   Perk{IsHolder: true, Multiplier: decimal.Zero},
			want:   "100",
		},
	}

	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			got := EffectiveBid(decimal.RequireFromString(c.amount), c.perk)
			check.Equal(t, c.want, got.String())
		})
	}
}

func TestEffectiveBidNeverBelowAmount(t *testing.T) {
	amounts := []string{"0.01", "1.00", "99.99", "12345.67"}
	perk := Perk{IsHolder: true, Multiplier: decimal.RequireFromString("1.5")}

	for _, a := range amounts {
		amount := decimal.RequireFromString(a)
		check.True(t, EffectiveBid(amount, perk).GreaterThanOrEqual(amount))
	}
}

func TestStaticPerks(t *testing.T) {
	perks := &StaticPerks{
		Holders:    map[string]bool{"solar:0xabc": true},
		Multiplier: decimal.RequireFromString("1.2"),
	}

	holder := perks.Resolve(context.Background(), "solar", "0xabc")
	check.True(t, holder.IsHolder)
	check.Equal(t, "1.2", holder.Multiplier.String())

	outsider := perks.Resolve(context.Background(), "solar", "0xdef")
	check.False(t, outsider.IsHolder)
	check.Equal(t, "1", outsider.Multiplier.String())
}
