package geo

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	shp "github.com/jonas-p/go-shp"

	"epidash/pkg/models"
)

// Resource locates one zipped shapefile on an HDX-style file server.
type Resource struct {
	Filename   string `json:"filename"`
	ResourceID string `json:"resource_id"`
}

// DownloadURL builds <base>/resource/<resource-id>/download/<filename>.
func DownloadURL(base string, r Resource) string {
	return strings.TrimSuffix(base, "/") + "/resource/" + r.ResourceID + "/download/" + r.Filename
}

// LayerSpec describes one boundary layer to download and clean.
type LayerSpec struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"` // display label, e.g. "District"
	NameVar  string            `json:"name_var"`
	JoinBy   map[string]string `json:"join_by"`
	Resource Resource          `json:"resource"`

	// Clean transforms run once over the NameVar attribute of every
	// feature after parsing.
	Clean []Transform `json:"-"`
}

// Loader downloads zipped shapefiles and parses them into GeoLayers.
type Loader struct {
	Client *http.Client
}

func NewLoader() *Loader {
	return &Loader{
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

// LoadAll fetches every layer in order. Archives land in a temporary
// directory that is removed on every exit path; the first failing
// layer aborts the whole load.
func (l *Loader) LoadAll(ctx context.Context, base string, specs []LayerSpec) ([]models.GeoLayer, error) {
	tmp, err := os.MkdirTemp("", "epidash-geo-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	layers := make([]models.GeoLayer, 0, len(specs))
	for _, spec := range specs {
		layer, err := l.loadOne(ctx, base, spec, tmp)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", spec.Name, err)
		}
		layers = append(layers, *layer)
	}
	return layers, nil
}

func (l *Loader) loadOne(ctx context.Context, base string, spec LayerSpec, tmp string) (*models.GeoLayer, error) {
	url := DownloadURL(base, spec.Resource)
	zipPath := filepath.Join(tmp, spec.Resource.Filename)

	log.Printf("[geo] downloading %s", url)
	if err := l.download(ctx, url, zipPath); err != nil {
		return nil, err
	}

	extractDir := filepath.Join(tmp, spec.ID)
	shpPath, err := extractShapefile(zipPath, extractDir)
	if err != nil {
		return nil, err
	}

	features, err := parseShapefile(shpPath)
	if err != nil {
		return nil, err
	}

	// Cleaning runs exactly once per feature.
	if spec.NameVar != "" && len(spec.Clean) > 0 {
		for i := range features {
			if v, ok := features[i].Attrs[spec.NameVar]; ok {
				features[i].Attrs[spec.NameVar] = Apply(v, spec.Clean...)
			}
		}
	}

	log.Printf("[geo] layer %s: %d features", spec.Name, len(features))
	return &models.GeoLayer{
		ID:       spec.ID,
		Name:     spec.Name,
		NameVar:  spec.NameVar,
		JoinBy:   spec.JoinBy,
		Features: features,
	}, nil
}

func (l *Loader) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// extractShapefile unzips an archive and returns the path of the .shp
// inside it. The sibling .dbf/.shx land next to it so the reader can
// pick up attributes.
func extractShapefile(zipPath, destDir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("extract dir: %w", err)
	}

	shpPath := ""
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if name == "" || f.FileInfo().IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		dest := filepath.Join(destDir, name)

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s in archive: %w", f.Name, err)
		}
		out, err := os.Create(dest)
		if err != nil {
			rc.Close()
			return "", fmt.Errorf("create %s: %w", dest, err)
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}

		if strings.EqualFold(filepath.Ext(name), ".shp") {
			shpPath = dest
		}
	}

	if shpPath == "" {
		return "", fmt.Errorf("no .shp entry in %s", filepath.Base(zipPath))
	}
	return shpPath, nil
}

func parseShapefile(path string) ([]models.Feature, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	var features []models.Feature
	for r.Next() {
		n, shape := r.Shape()

		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			attrs[f.String()] = strings.TrimSpace(r.ReadAttribute(n, i))
		}

		feat := models.Feature{Attrs: attrs}
		if poly, ok := shape.(*shp.Polygon); ok {
			feat.Rings = polygonRings(poly)
		}
		features = append(features, feat)
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("shapefile has no features")
	}
	return features, nil
}

func polygonRings(p *shp.Polygon) [][]models.Point {
	rings := make([][]models.Point, 0, len(p.Parts))
	for i, start := range p.Parts {
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		ring := make([]models.Point, 0, end-int(start))
		for _, pt := range p.Points[start:end] {
			ring = append(ring, models.Point{X: pt.X, Y: pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
