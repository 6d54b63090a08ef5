package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/leadvault/auction-engine/api/server"
	"github.com/leadvault/auction-engine/api/service"
	"github.com/leadvault/auction-engine/cmd"
	"github.com/leadvault/auction-engine/config"
	"github.com/leadvault/auction-engine/database/mysql"
)

func main() {
	app := cli.App{
		Name:   "auction-api",
		Usage:  "this is the marketplace read api for the lead auction engine",
		Action: exec,
		Flags: []cli.Flag{
			cmd.ConfigPathFlag,
			cmd.VerbosityFlag,
			cmd.LogFormatFlag,
		},
	}

	app.Before = cmd.InitLogging

	if err := app.Run(os.Args); err != nil {
		log.WithField("error", err).Error("running api application failed")
	}
}

func exec(ctx *cli.Context) error {
	cfg := &Config{}
	if err := config.Load(ctx.String(cmd.ConfigPathFlag.Name), cfg); err != nil {
		log.WithField("error", err).Fatal("reading api config failed")
	}

	db, err := mysql.NewMySQLDB(cfg.MySQL)
	if err != nil {
		log.WithField("error", err).Fatal("initialize mysql db error")
	}

	r, err := cmd.BuildResolver(&cfg.Services, db)
	if err != nil {
		log.WithField("error", err).Fatal("initialize resolution engine error")
	}

	server.New(cfg.Port, service.New(db, r)).Run()
	return nil
}

// Config defines the config for the api service.
type Config struct {
	Port     int                `json:"port"`
	MySQL    mysql.Config       `json:"mysql"`
	Services cmd.ServicesConfig `json:"services"`
}
