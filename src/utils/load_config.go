package utils

import (
	"fmt"
	"log/slog"
	"os"
)

type AppConfig struct {
	DiscordBotToken       string
	DiscordGatewayVersion string
	DiscordHTTPBaseURL    string
	DiscordGatewayAddress string
	AppEnv                string
}

func LoadConfiguration() AppConfig {
	cfg := AppConfig{}
	requiredEnv := map[string]*string{
		"DC_BOT_TOKEN": &cfg.DiscordBotToken,
	}
	for k, v := range requiredEnv {
		if val, ok := os.LookupEnv(k); !ok {
			slog.Error(fmt.Sprintf("Provide: %s", k))
			os.Exit(1)
		} else {
			*v = val
		}
	}
	optionalEnv := map[string]*string{
		"DC_GATEWAY_VERSION": &cfg.DiscordGatewayVersion,
		"DC_HTTP_BASE_URL":   &cfg.DiscordHTTPBaseURL,
		"DC_GATEWAY_ADDRESS": &cfg.DiscordGatewayAddress,
		"APP_ENV":            &cfg.AppEnv,
	}
	for k, v := range optionalEnv {
		if val, ok := os.LookupEnv(k); ok {
			*v = val
		}
	}
	return cfg
}
