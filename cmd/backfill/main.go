package main

import (
	"context"
	"log"
	"time"

	"cardstock/internal/backfill"
	"cardstock/internal/scryfall"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/pkg/database"
	"cardstock/pkg/utils"
)

func main() {
	cfg := utils.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	var blob store.Blob = store.NewSQLiteBlob(db)
	if cfg.RedisAddr != "" {
		blob = store.NewRedisBlob(cfg.RedisAddr)
	}
	st := store.New(blob)

	w := backfill.New(shopify.NewClient(cfg.ShopDomain, cfg.ShopToken), scryfall.NewClient(), st, cfg.GameTag)
	w.ProductType = cfg.ProductType
	w.Budget = cfg.BackfillBudget
	w.MinDelay = cfg.BackfillMinDelay
	w.BatchSize = cfg.BackfillBatchSize

	cp, done, err := w.Run(ctx)
	if err != nil {
		log.Fatalf("backfill failed (checkpoint saved): %v", err)
	}

	if done {
		log.Printf("backfill complete: %d scanned, %d matched, %d updated",
			cp.Stats.Scanned, cp.Stats.Matched, cp.Stats.Updated)
		return
	}
	log.Printf("backfill paused at cursor=%q offset=%d; %d lookups so far, rerun to resume",
		cp.Cursor, cp.Offset, cp.Stats.Lookups)
}
