package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cryptoetl/internal/cli"
	"cryptoetl/internal/config"
	"cryptoetl/internal/etl"
	"cryptoetl/internal/persistence"
	"cryptoetl/internal/store"
	"cryptoetl/pkg/journal"
	"cryptoetl/pkg/metadata"
)

var configFile = flag.String("f", "etc/etl.yaml", "the config file")

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting crypto ETL...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("[main] Warning: Failed to load app config: %v", err)
		log.Printf("[main] Using default configuration")
		appCfg = &config.Config{Env: "test", DataDir: "data"}
	}
	appCfg.MustSetUp()

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	client := appCfg.CoinGecko.Value.Build()
	job := appCfg.ETLConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(job.Coins) == 0 && job.TopCoins > 0 {
		coins, err := client.TopCoins(ctx, job.VsCurrency, job.TopCoins)
		if err != nil {
			log.Fatalf("[main] Failed to discover top coins: %v", err)
		}
		job.Coins = coins
		log.Printf("[main] Discovered coins: %v", coins)
	}

	snapshot := store.NewSnapshotStore(filepath.Join(appCfg.DataDir, job.MetadataFile))
	resolver := metadata.NewResolver(client, snapshot, job.VsCurrency,
		metadata.WithListingPause(listingPause(job.ListingPause)))

	runner, err := etl.NewRunner(job, etl.Deps{
		Charts:   client,
		Resolver: resolver,
		Prices:   store.NewPriceWriter(filepath.Join(appCfg.DataDir, job.PricesFile)),
		Snapshot: snapshot,
		DB:       persistence.NewService(appCfg.Postgres.DSN),
		Journal:  journal.NewWriter(filepath.Join(appCfg.DataDir, "journal")),
	})
	if err != nil {
		log.Fatalf("[main] Failed to build runner: %v", err)
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatalf("[main] Run failed: %v", err)
	}

	// Optional periodic mode: keep re-running on a fixed interval until
	// signalled.
	if job.Interval > 0 {
		log.Printf("[main] Re-running every %s. Press Ctrl+C to stop.", job.Interval)
		ticker := time.NewTicker(job.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[main] Shutdown signal received")
				return
			case <-ticker.C:
				if err := runner.Run(ctx); err != nil {
					log.Printf("[main] Run failed: %v", err)
				}
			}
		}
	}

	log.Println("[main] Done")
}

func listingPause(d time.Duration) func(context.Context) {
	return func(ctx context.Context) {
		if d <= 0 {
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	}
}
