package orm

import "time"

// RoomPhase represents auction room phase
type RoomPhase uint8

const (
	RoomBidding RoomPhase = iota + 1
	RoomResolved
	RoomCancelled
)

var (
	roomPhaseValue = map[RoomPhase]string{
		RoomBidding:   "BIDDING",
		RoomResolved:  "RESOLVED",
		RoomCancelled: "CANCELLED",
	}

	roomValuePhase = map[string]RoomPhase{
		"BIDDING":   RoomBidding,
		"RESOLVED":  RoomResolved,
		"CANCELLED": RoomCancelled,
	}
)

// StrToRoomPhase converts phase string to room phase
func StrToRoomPhase(str string) RoomPhase {
	if _, ok := roomValuePhase[str]; !ok {
		return 0
	}

	return roomValuePhase[str]
}

// String returns the string of room phase
func (p RoomPhase) String() string {
	if _, ok := roomPhaseValue[p]; !ok {
		return "unknown"
	}

	return roomPhaseValue[p]
}

// AuctionRoom is a gorm table definition represents one auction cycle
// of a lead. A room is never reused across cycles. The VRF columns are
// advisory tie-break provenance filled in after resolution.
type AuctionRoom struct {
	ID           uint64 `gorm:"primary_key"`
	LeadID       uint64
	Phase        RoomPhase
	WinningBidID uint64
	VRFRequestID string
	VRFWinner    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName change default table name
func (r AuctionRoom) TableName() string {
	return "auction_rooms"
}
