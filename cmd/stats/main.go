package main

import (
	stdLog "log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/equipment-lending/stats/app"
	"github.com/Astemirdum/equipment-lending/stats/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(config.WithLogLevel(zapcore.InfoLevel))

	app.Run(cfg)
}
