package events

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Lifecycle events emitted by the resolution engine.
const (
	AuctionResolved   = "auction:resolved"
	LeadUnsold        = "lead:unsold"
	LeadStatusChanged = "lead:status-changed"
	VRFRequested      = "auction:vrf-requested"
	VRFResolved       = "auction:vrf-resolved"
	BountyReleased    = "bounty:released"
	EscrowRequired    = "lead:escrow-required"
)

// Broadcaster delivers named lifecycle events to downstream consumers.
// Delivery is best effort: a failed publish is logged and dropped, it
// never affects the auction outcome already committed.
type Broadcaster interface {
	Publish(event string, payload interface{})
}

// NATSBroadcaster publishes events to a NATS subject per event name.
type NATSBroadcaster struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSBroadcaster returns a broadcaster publishing under
// <prefix>.<event> subjects.
func NewNATSBroadcaster(conn *nats.Conn, prefix string) *NATSBroadcaster {
	return &NATSBroadcaster{
		conn:   conn,
		prefix: prefix,
	}
}

// Publish marshals the payload and fires it at the event subject.
func (b *NATSBroadcaster) Publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithFields(log.Fields{
			"event": event,
			"error": err,
		}).Warn("fail marshal event payload")
		return
	}

	subject := b.prefix + "." + subjectName(event)
	if err := b.conn.Publish(subject, data); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Warn("fail publish event")
	}
}

// subjectName maps an event name to a NATS friendly token.
func subjectName(event string) string {
	return strings.NewReplacer(":", ".", "-", "_").Replace(event)
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

// Publish drops the event.
func (Noop) Publish(string, interface{}) {}
