package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Analytics event names appended by the resolution engine.
const (
	TrackAuctionResolved  = "auction_resolved"
	TrackUnsoldBinCreated = "lead_unsold_bin_created"
)

// Analytics appends structured analytics events. Fire and forget: no
// delivery guarantee is given at this layer.
type Analytics interface {
	Track(event string, props map[string]interface{})
}

// NATSAnalytics appends analytics events to a NATS subject stream.
type NATSAnalytics struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSAnalytics returns an analytics sink publishing under
// <prefix>.<event> subjects.
func NewNATSAnalytics(conn *nats.Conn, prefix string) *NATSAnalytics {
	return &NATSAnalytics{
		conn:   conn,
		prefix: prefix,
	}
}

// Track publishes the event with a timestamp attached.
func (a *NATSAnalytics) Track(event string, props map[string]interface{}) {
	if props == nil {
		props = map[string]interface{}{}
	}
	props["event"] = event
	props["tracked_at"] = time.Now().UTC()

	data, err := json.Marshal(props)
	if err != nil {
		log.WithFields(log.Fields{
			"event": event,
			"error": err,
		}).Warn("fail marshal analytics event")
		return
	}

	if err := a.conn.Publish(a.prefix+"."+event, data); err != nil {
		log.WithFields(log.Fields{
			"event": event,
			"error": err,
		}).Warn("fail publish analytics event")
	}
}

// NoopAnalytics discards every analytics event.
type NoopAnalytics struct{}

// Track drops the event.
func (NoopAnalytics) Track(string, map[string]interface{}) {}
