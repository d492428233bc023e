package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophidentity/internal/server"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := server.NewLogger(cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
