package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"epidash/internal/geo"
	"epidash/pkg/database"
)

// layerEntry is one entry of the -spec file: a LayerSpec plus the
// declarative cleaning rules that become Transform funcs.
type layerEntry struct {
	geo.LayerSpec
	StripPrefix string `json:"strip_prefix,omitempty"`
}

func main() {
	var (
		base     = flag.String("base", "https://data.humdata.org", "boundary file server base URL")
		specPath = flag.String("spec", "data/geo-layers.json", "layer spec JSON file")
	)
	flag.Parse()

	entries, err := readSpec(*specPath)
	if err != nil {
		log.Fatalf("read spec failed: %v", err)
	}
	if len(entries) == 0 {
		log.Fatalf("spec %s lists no layers", *specPath)
	}

	specs := make([]geo.LayerSpec, 0, len(entries))
	for _, e := range entries {
		spec := e.LayerSpec
		spec.Clean = append(spec.Clean, geo.TrimSpace())
		if e.StripPrefix != "" {
			spec.Clean = append(spec.Clean, geo.StripPrefix(e.StripPrefix))
		}
		specs = append(specs, spec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	loader := geo.NewLoader()
	layers, err := loader.LoadAll(ctx, *base, specs)
	if err != nil {
		log.Fatalf("fetch failed: %v", err)
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := geo.NewRepo(db)
	for i, layer := range layers {
		url := geo.DownloadURL(*base, specs[i].Resource)
		if err := repo.Save(ctx, layer, url); err != nil {
			log.Fatalf("save layer %s failed: %v", layer.ID, err)
		}
		log.Printf("✅ cached layer %s (%q): %d features", layer.ID, layer.Name, len(layer.Features))
	}
}

func readSpec(path string) ([]layerEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []layerEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
