package service

import (
	"github.com/gin-gonic/gin"

	"github.com/leadvault/auction-engine/database/orm"
)

type statsResp struct {
	InAuctionCount int64 `json:"in_auction_count"`
	SoldCount      int64 `json:"sold_count"`
	UnsoldCount    int64 `json:"unsold_count"`
	ExpiredCount   int64 `json:"expired_count"`
	PendingTxCount int64 `json:"pending_tx_count"`
}

// Stats handles the /stats request.
func (s *Service) Stats(c *gin.Context) {
	resp := &statsResp{}
	counts := []struct {
		status orm.LeadStatus
		dst    *int64
	}{
		{orm.LeadInAuction, &resp.InAuctionCount},
		{orm.LeadSold, &resp.SoldCount},
		{orm.LeadUnsold, &resp.UnsoldCount},
		{orm.LeadExpired, &resp.ExpiredCount},
	}

	for _, c2 := range counts {
		if err := s.db.Model(&orm.Lead{}).
			Where("status = ?", c2.status).
			Count(c2.dst).
			Error; err != nil {
			respondError(c, err)
			return
		}
	}

	if err := s.db.Model(&orm.Transaction{}).
		Where("status = ?", orm.TxPending).
		Count(&resp.PendingTxCount).
		Error; err != nil {
		respondError(c, err)
		return
	}

	respond(c, resp)
}
