package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"epidash/internal/linelist"
	"epidash/pkg/database"
	"epidash/pkg/models"
)

func main() {
	var (
		datasetID = flag.String("dataset", "", "dataset id (default: latest import)")
		out       = flag.String("out", "data/linelist.csv", "output CSV path")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := linelist.NewRepo(db)

	var (
		ds  *models.Dataset
		err error
	)
	if *datasetID != "" {
		ds, err = repo.Get(ctx, *datasetID)
	} else {
		ds, err = repo.Latest(ctx)
	}
	if err != nil {
		log.Fatalf("lookup failed: %v", err)
	}
	if ds == nil {
		log.Fatal("no dataset found")
	}

	ll, err := repo.LoadRows(ctx, ds)
	if err != nil {
		log.Fatalf("load rows failed: %v", err)
	}

	if err := writeCSV(*out, ll); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	log.Printf("✅ exported %q (%d rows) to %s", ds.Name, ll.Len(), *out)
}

func writeCSV(outPath string, ll *models.LineList) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ll.Columns); err != nil {
		return err
	}
	for _, row := range ll.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
