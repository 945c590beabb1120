package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hendrywilliam/halcyon/src/gateway"
	"github.com/hendrywilliam/halcyon/src/logging"
	"github.com/hendrywilliam/halcyon/src/rest"
	"github.com/hendrywilliam/halcyon/src/structs"
	"github.com/hendrywilliam/halcyon/src/utils"
)

var signals = []os.Signal{
	os.Interrupt,
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	err := godotenv.Load()
	if err != nil {
		panic("failed to load config file")
	}
	cfg := utils.LoadConfiguration()
	logger := logging.NewLogger(os.Stdout, io.Discard, nil)

	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	version := 0
	if cfg.DiscordGatewayVersion != "" {
		version, err = strconv.Atoi(cfg.DiscordGatewayVersion)
		if err != nil {
			logger.Error("invalid DC_GATEWAY_VERSION", "value", cfg.DiscordGatewayVersion)
			stop()
			return
		}
	}
	restClient := rest.NewREST(cfg.DiscordBotToken)
	if cfg.DiscordHTTPBaseURL != "" {
		restClient = rest.NewRESTWithBaseURL(cfg.DiscordBotToken, cfg.DiscordHTTPBaseURL)
	}

	g := gateway.NewGateway(gateway.GatewayConfig{
		BotToken:    cfg.DiscordBotToken,
		GatewayHost: cfg.DiscordGatewayAddress,
		Version:     version,
		Intents: gateway.GuildsIntent | gateway.GuildMembersIntent |
			gateway.GuildMessagesIntent | gateway.GuildPresencesIntent |
			gateway.MessageContentIntent,
		Logger: logger,
		REST:   restClient,
	})
	g.On(gateway.ObserverReady, func(data any) {
		guilds := data.([]*structs.Guild)
		logger.Info("ready", "guild_count", len(guilds))
	})
	g.On(gateway.ObserverMessage, func(data any) {
		message := data.(*structs.Message)
		logger.Info("message received",
			"author", message.Author.Tag(),
			"content", message.Content)
	})
	if err := g.Open(ctx); err != nil {
		logger.Error("failed to open gateway", "error", err.Error())
		stop()
		return
	}
	defer g.Close()
	<-ctx.Done()
}
