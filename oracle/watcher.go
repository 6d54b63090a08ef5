package oracle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/database/orm"
	"github.com/leadvault/auction-engine/events"
)

// StartResolutionWatcher launches a detached task polling the coordinator
// for the tie-break fulfillment of a lead. When the answer arrives it is
// recorded on the already resolved auction room and broadcast. The VRF
// answer is advisory provenance only: money moved at closure stays moved,
// regardless of which candidate the oracle names. Polling is bounded at
// maxAttempts so an orphaned request cannot leak a goroutine forever; a
// fulfillment arriving after the watcher gave up changes nothing, the
// deterministic fallback winner already stands.
func (c *Client) StartResolutionWatcher(
	ctx context.Context,
	leadID uint64,
	db *gorm.DB,
	broadcaster events.Broadcaster,
) {
	go c.watchResolution(ctx, leadID, db, broadcaster)
}

func (c *Client) watchResolution(
	ctx context.Context,
	leadID uint64,
	db *gorm.DB,
	broadcaster events.Broadcaster,
) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
		}

		f, err := c.PollFulfillment(ctx, leadID)
		if err != nil {
			log.WithFields(log.Fields{
				"lead_id": leadID,
				"error":   err,
			}).Warn("poll vrf fulfillment failed")
			continue
		}

		if !f.Fulfilled {
			continue
		}

		if err := db.Model(&orm.AuctionRoom{}).
			Where("lead_id = ? AND phase = ?", leadID, orm.RoomResolved).
			Update("vrf_winner", f.Winner).
			Error; err != nil {
			log.WithFields(log.Fields{
				"lead_id": leadID,
				"error":   err,
			}).Error("fail record vrf winner")
			return
		}

		broadcaster.Publish(events.VRFResolved, map[string]interface{}{
			"lead_id":    leadID,
			"vrf_winner": f.Winner,
		})

		log.WithFields(log.Fields{
			"lead_id":    leadID,
			"vrf_winner": f.Winner,
		}).Info("vrf tie-break resolved")
		return
	}

	log.WithFields(log.Fields{
		"lead_id": leadID,
	}).Warn("vrf fulfillment never arrived, deterministic fallback stands")
}
