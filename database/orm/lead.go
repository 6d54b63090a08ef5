package orm

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeadStatus represents lead lifecycle status
type LeadStatus uint8

const (
	LeadDraft LeadStatus = iota + 1
	LeadPending
	LeadInAuction
	LeadSold
	LeadUnsold
	LeadExpired
)

var (
	leadStatusValue = map[LeadStatus]string{
		LeadDraft:     "DRAFT",
		LeadPending:   "PENDING",
		LeadInAuction: "IN_AUCTION",
		LeadSold:      "SOLD",
		LeadUnsold:    "UNSOLD",
		LeadExpired:   "EXPIRED",
	}

	leadValueStatus = map[string]LeadStatus{
		"DRAFT":      LeadDraft,
		"PENDING":    LeadPending,
		"IN_AUCTION": LeadInAuction,
		"SOLD":       LeadSold,
		"UNSOLD":     LeadUnsold,
		"EXPIRED":    LeadExpired,
	}
)

// StrToLeadStatus converts status string to lead status
func StrToLeadStatus(str string) LeadStatus {
	if _, ok := leadValueStatus[str]; !ok {
		return 0
	}

	return leadValueStatus[str]
}

// String returns the string of lead status
func (s LeadStatus) String() string {
	if _, ok := leadStatusValue[s]; !ok {
		return "unknown"
	}

	return leadStatusValue[s]
}

// Terminal reports whether the status admits no further transition.
func (s LeadStatus) Terminal() bool {
	return s == LeadSold || s == LeadExpired
}

// Lead is a gorm table definition represents the sellable leads.
type Lead struct {
	ID            uint64 `gorm:"primary_key"`
	SellerID      uint64
	SellerAddress string
	VerticalSlug  string
	Geo           string
	QualityScore  uint32
	ReservePrice  decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	BuyNowPrice   decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	WinningBid    decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	Status        LeadStatus
	AuctionEndAt  *time.Time
	ExpiresAt     *time.Time
	SoldAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt
}
