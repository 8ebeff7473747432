package main

import (
	"errors"
	"log/slog"
	"os"

	ucli "github.com/urfave/cli/v2"

	app "github.com/kode4food/atelier"
	"github.com/kode4food/atelier/internal/cli"
	"github.com/kode4food/atelier/pkg/log"
)

func main() {
	level := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := log.NewWithWriter(
		os.Stderr, app.Name+"ctl", os.Getenv("ENV"), app.Version, level,
	)
	slog.SetDefault(logger)

	err := cli.NewApp(cli.Options{}).Run(os.Args)
	if err == nil {
		return
	}

	slog.Error("Command failed", log.Error(err))
	var ec ucli.ExitCoder
	if errors.As(err, &ec) {
		os.Exit(ec.ExitCode())
	}
	os.Exit(1)
}
