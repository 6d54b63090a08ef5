package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
)

type leadResp struct {
	ID           uint64     `json:"id"`
	VerticalSlug string     `json:"vertical_slug"`
	Geo          string     `json:"geo"`
	QualityScore uint32     `json:"quality_score"`
	Status       string     `json:"status"`
	ReservePrice string     `json:"reserve_price,omitempty"`
	BuyNowPrice  string     `json:"buy_now_price,omitempty"`
	WinningBid   string     `json:"winning_bid,omitempty"`
	AuctionEndAt *time.Time `json:"auction_end_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SoldAt       *time.Time `json:"sold_at,omitempty"`
	Room         *roomResp  `json:"room,omitempty"`
}

type roomResp struct {
	Phase        string `json:"phase"`
	WinningBidID uint64 `json:"winning_bid_id,omitempty"`
	VRFRequestID string `json:"vrf_request_id,omitempty"`
	VRFWinner    string `json:"vrf_winner,omitempty"`
}

// Lead handles the /lead/:id request. Reading an overdue IN_AUCTION
// lead resolves it before answering, so readers never see an auction
// stuck past its window just because the timer has not fired yet.
func (s *Service) Lead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, errMissingLeadID)
		return
	}

	s.resolver.ResolveLead(c.Request.Context(), id)

	lead := &orm.Lead{}
	if err := s.db.First(lead, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			respondError(c, errLeadNotFound)
			return
		}

		respondError(c, err)
		return
	}

	resp := &leadResp{
		ID:           lead.ID,
		VerticalSlug: lead.VerticalSlug,
		Geo:          lead.Geo,
		QualityScore: lead.QualityScore,
		Status:       lead.Status.String(),
		AuctionEndAt: lead.AuctionEndAt,
		ExpiresAt:    lead.ExpiresAt,
		SoldAt:       lead.SoldAt,
	}
	if lead.ReservePrice.Valid {
		resp.ReservePrice = lead.ReservePrice.Decimal.String()
	}
	if lead.BuyNowPrice.Valid {
		resp.BuyNowPrice = lead.BuyNowPrice.Decimal.String()
	}
	if lead.WinningBid.Valid {
		resp.WinningBid = lead.WinningBid.Decimal.String()
	}

	room := &orm.AuctionRoom{}
	err = s.db.Model(&orm.AuctionRoom{}).
		Where("lead_id = ?", lead.ID).
		Order("id DESC").
		First(room).
		Error
	if err == nil {
		resp.Room = &roomResp{
			Phase:        room.Phase.String(),
			WinningBidID: room.WinningBidID,
			VRFRequestID: room.VRFRequestID,
			VRFWinner:    room.VRFWinner,
		}
	} else if err != gorm.ErrRecordNotFound {
		respondError(c, err)
		return
	}

	respond(c, resp)
}
