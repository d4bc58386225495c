package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marquee/internal/adapters/console"
	"marquee/internal/adapters/ws"
	"marquee/internal/application/terminal"
	"marquee/internal/config"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.LoadConfig()
	daemon := cfg.DaemonURL
	level := cfg.LogLevel
	flag.StringVar(&daemon, "daemon", daemon, "Session daemon base URL")
	flag.StringVar(&level, "log-level", level, "Log level")
	flag.Parse()

	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	wsURL := ws.URL(daemon)
	log.Info().Str("url", wsURL).Msg("connecting to session daemon")

	term := console.New(os.Stdin, os.Stdout)
	runner := terminal.NewRunner(ws.NewClient(), term, term, wsURL)

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		close(stop)
	}()

	runner.Start(stop)
}
