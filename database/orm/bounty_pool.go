package orm

import (
	"time"

	"github.com/shopspring/decimal"
)

// BountyPool is a gorm table definition represents buyer-funded pools
// released to sellers when a sold lead matches the pool criteria.
type BountyPool struct {
	ID            uint64 `gorm:"primary_key"`
	BuyerID       uint64
	VerticalSlug  string
	GeoFilter     string
	MinQuality    uint32
	PerLeadAmount decimal.Decimal `gorm:"type:decimal(18,2)"`
	Remaining     decimal.Decimal `gorm:"type:decimal(18,2)"`
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
