package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/leadvault/auction-engine/database/orm"
)

const monetaryPrecision int32 = 2

var (
	platformFeeRate = decimal.NewFromFloat(0.05)
	agentFeeRate    = decimal.NewFromFloat(0.02)
	autoBidFlatFee  = decimal.NewFromFloat(0.50)
	zero            = decimal.Zero
)

// Convenience fee types reported alongside settlement.
const (
	FeeTypeNone      = ""
	FeeTypeAgent     = "agent"
	FeeTypeAutopilot = "autopilot"
)

// Fees is the platform cut computed for a winning amount. Stable for a
// given (amount, source) pair, used for both settlement and reporting.
type Fees struct {
	Platform    decimal.Decimal
	Convenience decimal.Decimal
	FeeType     string
}

// CalcFees computes the platform and convenience fees for a winning
// amount arriving through the given bid channel. Side-effect free.
func CalcFees(amount decimal.Decimal, source orm.BidSource) Fees {
	platform := amount.Mul(platformFeeRate).Round(monetaryPrecision)

	switch source {
	case orm.SourceAgent:
		return Fees{
			Platform:    platform,
			Convenience: amount.Mul(agentFeeRate).Round(monetaryPrecision),
			FeeType:     FeeTypeAgent,
		}

	case orm.SourceAutoBid:
		return Fees{
			Platform:    platform,
			Convenience: autoBidFlatFee,
			FeeType:     FeeTypeAutopilot,
		}

	default:
		return Fees{
			Platform:    platform,
			Convenience: zero,
			FeeType:     FeeTypeNone,
		}
	}
}
