package main

import (
	"context"
	"os"

	"hbinterface/backend/internal/cli"
	"hbinterface/backend/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCmd(config.LoadGateway()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
