package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/smile200420ff/Main-bot/internal/bot"
	"github.com/smile200420ff/Main-bot/internal/config"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := bot.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
