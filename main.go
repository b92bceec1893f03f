package main

import (
	"context"

	"github.com/joho/godotenv"

	"github.com/StartupEmbassy/AgencyAtlas/app"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	ctx := context.Background()
	a, err := app.New(ctx)
	if err != nil {
		panic(err)
	}
	defer a.Close(ctx)

	a.Log.Info("starting long polling")
	a.Bot.Start()
}
