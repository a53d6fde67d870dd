package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Serves a local demo dataset the way the real upstream would: the
// line list CSV at /linelist.csv and zipped shapefiles under
// /resource/<resource-id>/download/<filename>, so import-csv and
// fetch-geo can be pointed at http://localhost:9000 unchanged.
func main() {
	var (
		addr    = flag.String("addr", ":9000", "listen address")
		dataDir = flag.String("data", "data/demo", "directory with linelist.csv and *.zip boundary archives")
	)
	flag.Parse()

	http.HandleFunc("/linelist.csv", func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, filepath.Join(*dataDir, "linelist.csv"), "text/csv")
	})

	// /resource/<id>/download/<filename> -> <data>/<filename>
	http.HandleFunc("/resource/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "resource" || parts[2] != "download" {
			http.NotFound(w, r)
			return
		}
		filename := filepath.Base(parts[3])
		if !strings.HasSuffix(filename, ".zip") {
			http.NotFound(w, r)
			return
		}
		serveFile(w, filepath.Join(*dataDir, filename), "application/zip")
	})

	log.Printf("demo-data-server listening on %s (data: %s)", *addr, *dataDir)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func serveFile(w http.ResponseWriter, path, contentType string) {
	b, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "cannot read "+filepath.Base(path)+": "+err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
