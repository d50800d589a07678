// Command gatewayd runs a BookManager behind the line-protocol TCP
// gateway, adapted from the teacher's cmd entrypoints.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fenrir-labs/lob/internal/gateway"
	"github.com/fenrir-labs/lob/internal/manager"
)

func main() {
	address := flag.String("address", "0.0.0.0", "address to listen on")
	port := flag.Int("port", 9443, "port to listen on")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	mgr := manager.New[gateway.ClientTag]()
	mgr.StartTradeProcessor(func(event manager.TradeEvent) {
		log.Info().
			Str("symbol", event.Symbol).
			Uint64("executed_quantity", event.MatchResult.ExecutedQuantity).
			Uint64("timestamp_ms", event.TimestampMs).
			Msg("trade")
	})
	defer func() {
		if err := mgr.Stop(); err != nil {
			log.Error().Err(err).Msg("error stopping trade processor")
		}
	}()

	srv, err := gateway.New(*address, *port, mgr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start gateway")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("address", *address).Int("port", *port).Msg("gateway listening")
	srv.Run(ctx)
}
