package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Gliger13/bdo-daily-bot-sub001/internal/bot"
	"github.com/Gliger13/bdo-daily-bot-sub001/internal/config"
	"github.com/Gliger13/bdo-daily-bot-sub001/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.SQLiteDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open storage")
	}
	defer store.Close()

	raidbot := bot.New(cfg.DiscordToken, store, cfg.ReminderLead)
	if err := raidbot.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped with an error")
	}
	log.Info().Msg("Bot stopped")
}
