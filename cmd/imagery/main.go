package main

import (
	"context"
	"time"

	"github.com/dmikhr/catalog-imagery/config"
	"github.com/dmikhr/catalog-imagery/internal/app"
	"github.com/dmikhr/catalog-imagery/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	imageryService := app.New(sigCtx, cfg)

	imageryService.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	imageryService.Close(ctx)
}
