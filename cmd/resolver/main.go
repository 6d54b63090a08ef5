package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/leadvault/auction-engine/cmd"
	"github.com/leadvault/auction-engine/config"
	"github.com/leadvault/auction-engine/database/mysql"
)

func main() {
	app := cli.App{
		Name:   "auction-resolver",
		Usage:  "this is the auction resolution daemon for the lead marketplace",
		Action: exec,
		Flags: []cli.Flag{
			cmd.ConfigPathFlag,
			cmd.VerbosityFlag,
			cmd.LogFormatFlag,
		},
	}

	app.Before = cmd.InitLogging

	if err := app.Run(os.Args); err != nil {
		log.WithField("error", err).Error("running application failed")
	}
}

func exec(ctx *cli.Context) error {
	cfg := &Config{}
	if err := config.Load(ctx.String(cmd.ConfigPathFlag.Name), cfg); err != nil {
		log.WithField("error", err).Fatal("fail on read config")
	}

	db, err := mysql.NewMySQLDB(cfg.MySQL)
	if err != nil {
		log.WithField("error", err).Fatal("initialize mysql db error")
	}

	r, err := cmd.BuildResolver(&cfg.Services, db)
	if err != nil {
		log.WithField("error", err).Fatal("initialize resolution engine error")
	}

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")

		go r.Stop()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the resolver service")
	}()

	r.Run(ctx.Context)
	return nil
}

// Config defines the config for the resolver daemon.
type Config struct {
	MySQL    mysql.Config       `json:"mysql"`
	Services cmd.ServicesConfig `json:"services"`
}
