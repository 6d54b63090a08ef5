package orm

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus represents bid lifecycle status
type BidStatus uint8

const (
	BidPending BidStatus = iota + 1
	BidRevealed
	BidAccepted
	BidOutbid
	BidExpired
)

var (
	bidStatusValue = map[BidStatus]string{
		BidPending:  "PENDING",
		BidRevealed: "REVEALED",
		BidAccepted: "ACCEPTED",
		BidOutbid:   "OUTBID",
		BidExpired:  "EXPIRED",
	}

	bidValueStatus = map[string]BidStatus{
		"PENDING":  BidPending,
		"REVEALED": BidRevealed,
		"ACCEPTED": BidAccepted,
		"OUTBID":   BidOutbid,
		"EXPIRED":  BidExpired,
	}
)

// StrToBidStatus converts status string to bid status
func StrToBidStatus(str string) BidStatus {
	if _, ok := bidValueStatus[str]; !ok {
		return 0
	}

	return bidValueStatus[str]
}

// String returns the string of bid status
func (s BidStatus) String() string {
	if _, ok := bidStatusValue[s]; !ok {
		return "unknown"
	}

	return bidStatusValue[s]
}

// BidSource represents the channel a bid arrived through
type BidSource uint8

const (
	SourceManual BidSource = iota + 1
	SourceAgent
	SourceAutoBid
)

var (
	bidSourceValue = map[BidSource]string{
		SourceManual:  "MANUAL",
		SourceAgent:   "AGENT",
		SourceAutoBid: "AUTO_BID",
	}

	bidValueSource = map[string]BidSource{
		"MANUAL":   SourceManual,
		"AGENT":    SourceAgent,
		"AUTO_BID": SourceAutoBid,
	}
)

// StrToBidSource converts source string to bid source
func StrToBidSource(str string) BidSource {
	if _, ok := bidValueSource[str]; !ok {
		return 0
	}

	return bidValueSource[str]
}

// String returns the string of bid source
func (s BidSource) String() string {
	if _, ok := bidSourceValue[s]; !ok {
		return "unknown"
	}

	return bidSourceValue[s]
}

// Bid is a gorm table definition represents the buyer offers against leads.
type Bid struct {
	ID             uint64 `gorm:"primary_key"`
	LeadID         uint64
	BuyerID        uint64
	WalletAddress  string
	Amount         decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	Commitment     string
	EffectiveBid   decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	IsHolder       bool
	Source         BidSource
	Status         BidStatus
	EscrowLockRef  string
	EscrowRefunded bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
