package service

import (
	"github.com/gin-gonic/gin"
)

type sweepResp struct {
	ResolvedCount int   `json:"resolved_count"`
	ForcedCount   int   `json:"forced_count"`
	ExpiredCount  int64 `json:"expired_count"`
}

// Sweep handles the /sweep request, running one full resolution pass on
// demand. Safe to race with the timer loop; a lead resolved by one
// caller is a no-op for the other.
func (s *Service) Sweep(c *gin.Context) {
	ctx := c.Request.Context()

	resolved, err := s.resolver.SweepExpiredAuctions(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	forced, err := s.resolver.SweepStuckAuctions(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	expired, err := s.resolver.SweepExpiredBuyNow(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, &sweepResp{
		ResolvedCount: resolved,
		ForcedCount:   forced,
		ExpiredCount:  expired,
	})
}
