package main

import (
	"eligibility-signposting/internal/app/server"
	"eligibility-signposting/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	server.Run(cfg)
}
