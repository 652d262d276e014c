package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cardstock/internal/store"
	"cardstock/pkg/database"
	"cardstock/pkg/models"
)

// Exports the current catalog snapshot as CSV, one row per listing.
// Handy for spreadsheets, buylist tools and quick audits.
func main() {
	out := flag.String("out", "data/catalog.csv", "output CSV path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	st := store.New(store.NewSQLiteBlob(db))
	snap, err := st.LoadSnapshot(ctx)
	if err != nil {
		log.Fatalf("load snapshot failed (run a rebuild first?): %v", err)
	}

	if err := exportCatalog(snap, *out); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	log.Printf("✅ exported %d cards to %s", len(snap.Cards), *out)
}

func exportCatalog(snap *models.Snapshot, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"id", "name", "set_code", "set_name", "collector_number", "rarity",
		"condition", "finish", "language", "price", "quantity", "in_stock",
		"scryfall_id", "matched", "url",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, c := range snap.Cards {
		row := []string{
			c.ID,
			c.Name,
			c.SetCode,
			c.SetName,
			c.CollectorNumber,
			c.Rarity,
			c.Store.Condition,
			c.Store.Finish,
			c.Store.Language,
			fmt.Sprintf("%.2f", c.Store.Price),
			strconv.Itoa(c.Store.Quantity),
			strconv.FormatBool(c.Store.InStock),
			c.ScryfallID,
			strconv.FormatBool(c.Matched),
			c.Store.URL,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
