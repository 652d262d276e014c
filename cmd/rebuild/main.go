package main

import (
	"context"
	"log"
	"time"

	"cardstock/internal/builder"
	"cardstock/internal/scryfall"
	"cardstock/internal/shopify"
	"cardstock/internal/store"
	"cardstock/pkg/database"
	"cardstock/pkg/utils"
)

func main() {
	cfg := utils.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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

	scry := scryfall.NewClient()
	idx, err := builder.EnsureIndex(ctx, st, scry, cfg.IndexTTL)
	if err != nil {
		log.Fatalf("reference index failed: %v", err)
	}

	shop := shopify.NewClient(cfg.ShopDomain, cfg.ShopToken)
	b := builder.New(shop, st, idx, cfg.GameTag)
	b.ProductType = cfg.ProductType
	b.StoreURL = cfg.StoreURL

	snap, err := b.Run(ctx)
	if err != nil {
		log.Fatalf("rebuild failed: %v", err)
	}

	log.Printf("snapshot persisted: %d products, %d cards (%d matched, %d in stock)",
		snap.Stats.Products, snap.Stats.Variants, snap.Stats.Matched, snap.Stats.InStock)
}
