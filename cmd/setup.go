package cmd

import (
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/leadvault/auction-engine/bounty"
	"github.com/leadvault/auction-engine/events"
	"github.com/leadvault/auction-engine/oracle"
	"github.com/leadvault/auction-engine/pricing"
	"github.com/leadvault/auction-engine/resolver"
	"github.com/leadvault/auction-engine/vault"
)

// ServicesConfig defines the collaborator endpoints shared by every
// binary that runs the resolution engine.
type ServicesConfig struct {
	VaultEndpoint    string          `json:"vault_endpoint"`
	OracleEndpoint   string          `json:"oracle_endpoint"`
	NATSUrl          string          `json:"nats_url"`
	RedisAddr        string          `json:"redis_addr"`
	HolderMultiplier string          `json:"holder_multiplier"`
	Resolver         resolver.Config `json:"resolver"`
}

// BuildResolver wires the resolution engine from config. Optional
// collaborators degrade gracefully: no NATS means events are dropped,
// no redis means every buyer is a non-holder, no oracle endpoint means
// tie-breaks stay deterministic.
func BuildResolver(cfg *ServicesConfig, db *gorm.DB) (*resolver.Resolver, error) {
	var broadcaster events.Broadcaster = events.Noop{}
	var analytics events.Analytics = events.NoopAnalytics{}
	if cfg.NATSUrl != "" {
		conn, err := nats.Connect(cfg.NATSUrl)
		if err != nil {
			return nil, err
		}

		broadcaster = events.NewNATSBroadcaster(conn, "auction.events")
		analytics = events.NewNATSAnalytics(conn, "auction.analytics")
	} else {
		log.Warn("no nats url configured, lifecycle events are dropped")
	}

	var perks pricing.PerkResolver = &pricing.StaticPerks{}
	if cfg.RedisAddr != "" {
		multiplier, err := decimal.NewFromString(cfg.HolderMultiplier)
		if err != nil {
			multiplier = decimal.RequireFromString("1.2")
		}

		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		perks = pricing.NewHolderRegistry(rdb, multiplier)
	} else {
		log.Warn("no redis addr configured, holder perks disabled")
	}

	vaultClient := vault.NewClient(cfg.VaultEndpoint)
	oracleClient := oracle.NewClient(cfg.OracleEndpoint)
	bountyMatcher := bounty.NewMatcher(db, vaultClient, broadcaster)

	return resolver.New(
		db,
		vaultClient,
		oracleClient,
		bountyMatcher,
		perks,
		broadcaster,
		analytics,
		cfg.Resolver,
	), nil
}
