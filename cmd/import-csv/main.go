package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"epidash/internal/linelist"
	"epidash/pkg/database"
	"epidash/pkg/models"
)

func main() {
	var (
		name   = flag.String("name", "", "dataset name (required)")
		source = flag.String("source", "", "CSV source: URL or local path (required)")
	)
	flag.Parse()

	if *name == "" || *source == "" {
		log.Fatal("usage: import-csv -name <dataset name> -source <url or path>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	loader := linelist.NewLoader()
	ll, err := loader.Load(ctx, *source)
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}

	ds := models.Dataset{
		ID:     uuid.NewString(),
		Name:   *name,
		Source: *source,
	}
	repo := linelist.NewRepo(db)
	if err := repo.Save(ctx, ds, ll); err != nil {
		log.Fatalf("save failed: %v", err)
	}

	log.Printf("✅ imported %q (%s): %d rows, %d columns", ds.Name, ds.ID, ll.Len(), len(ll.Columns))
}
