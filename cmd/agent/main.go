package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/fleetsync/internal/agent"
	"github.com/dmitrijs2005/fleetsync/internal/agent/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := agent.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if cfg.RunOnce {
		if _, err := app.RunOnce(ctx); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	app.Run(ctx)

}
