package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tailorbook/internal/client"
	"github.com/dmitrijs2005/tailorbook/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:], ".env")
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := client.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx)

}
