package cmd

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// InitLogging configures logrus from the shared verbosity and format
// flags. Called from every binary's Before hook.
func InitLogging(ctx *cli.Context) error {
	level, err := log.ParseLevel(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	log.SetLevel(level)

	switch ctx.String(LogFormatFlag.Name) {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", ctx.String(LogFormatFlag.Name))
	}

	return nil
}
