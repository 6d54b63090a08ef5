package orm

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus represents settlement transaction status
type TxStatus uint8

const (
	TxPending TxStatus = iota + 1
	TxConfirmed
	TxFailed
)

var (
	txStatusValue = map[TxStatus]string{
		TxPending:   "PENDING",
		TxConfirmed: "CONFIRMED",
		TxFailed:    "FAILED",
	}

	txValueStatus = map[string]TxStatus{
		"PENDING":   TxPending,
		"CONFIRMED": TxConfirmed,
		"FAILED":    TxFailed,
	}
)

// StrToTxStatus converts status string to transaction status
func StrToTxStatus(str string) TxStatus {
	if _, ok := txValueStatus[str]; !ok {
		return 0
	}

	return txValueStatus[str]
}

// String returns the string of transaction status
func (s TxStatus) String() string {
	if _, ok := txStatusValue[s]; !ok {
		return "unknown"
	}

	return txStatusValue[s]
}

// Transaction is a gorm table definition represents the settlement record
// created once an auction winner is chosen.
type Transaction struct {
	ID              uint64 `gorm:"primary_key"`
	LeadID          uint64
	BidID           uint64
	BuyerID         uint64
	Amount          decimal.Decimal `gorm:"type:decimal(18,2)"`
	PlatformFee     decimal.Decimal `gorm:"type:decimal(18,2)"`
	ConvenienceFee  decimal.Decimal `gorm:"type:decimal(18,2)"`
	FeeType         string
	SettlementTxRef string
	Status          TxStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
