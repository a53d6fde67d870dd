package geo

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBoundaryZip builds a minimal zipped shapefile with one string
// attribute ("admin2") per polygon, the way boundary archives ship.
func writeBoundaryZip(t *testing.T, names []string) string {
	t.Helper()
	dir := t.TempDir()

	shpPath := filepath.Join(dir, "districts.shp")
	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)

	w.SetFields([]shp.Field{shp.StringField("admin2", 40)})
	for i, name := range names {
		x := float64(i)
		ring := [][]shp.Point{{
			{X: x, Y: 0}, {X: x, Y: 1}, {X: x + 1, Y: 1}, {X: x + 1, Y: 0}, {X: x, Y: 0},
		}}
		poly := shp.Polygon(*shp.NewPolyLine(ring))
		w.Write(&poly)
		// go-shp leaves unwritten DBF bytes as NULs; real archives are
		// space-padded, so pad to the field width explicitly.
		w.WriteAttribute(i, 0, fmt.Sprintf("%-40s", name))
	}
	w.Close()

	zipPath := filepath.Join(dir, "districts.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		src := filepath.Join(dir, "districts"+ext)
		b, err := os.ReadFile(src)
		require.NoError(t, err)
		entry, err := zw.Create("districts" + ext)
		require.NoError(t, err)
		_, err = entry.Write(b)
		require.NoError(t, err)
	}

	// archives from macOS carry resource-fork junk that must be skipped
	junk, err := zw.Create("__MACOSX/._districts.shp")
	require.NoError(t, err)
	_, err = junk.Write([]byte{0x00})
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())
	return zipPath
}

func boundaryServer(t *testing.T, zipPath string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/resource/res-1/download/districts.zip" {
			http.NotFound(w, r)
			return
		}
		f, err := os.Open(zipPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", "application/zip")
		_, _ = io.Copy(w, f)
	}))
}

func TestLoadAll(t *testing.T) {
	zipPath := writeBoundaryZip(t, []string{"Area Bo", "Area Kenema", "Kailahun"})
	srv := boundaryServer(t, zipPath)
	defer srv.Close()

	specs := []LayerSpec{{
		ID:       "sle-adm2",
		Name:     "District",
		NameVar:  "admin2",
		JoinBy:   map[string]string{"admin2": "district"},
		Resource: Resource{Filename: "districts.zip", ResourceID: "res-1"},
		Clean:    []Transform{TrimSpace(), StripPrefix("Area ")},
	}}

	layers, err := NewLoader().LoadAll(context.Background(), srv.URL, specs)
	require.NoError(t, err)
	require.Len(t, layers, 1)

	layer := layers[0]
	assert.Equal(t, "sle-adm2", layer.ID)
	assert.Equal(t, "District", layer.Name)
	assert.Equal(t, "admin2", layer.NameVar)
	assert.Equal(t, map[string]string{"admin2": "district"}, layer.JoinBy)

	require.Len(t, layer.Features, 3)
	assert.Equal(t, []string{"Bo", "Kenema", "Kailahun"}, layer.AttributeValues("admin2"))

	// geometry survives the round trip
	for _, f := range layer.Features {
		require.NotEmpty(t, f.Rings)
		assert.Len(t, f.Rings[0], 5)
	}
}

func TestLoadAllAbortsOnFetchError(t *testing.T) {
	zipPath := writeBoundaryZip(t, []string{"Bo"})
	srv := boundaryServer(t, zipPath)
	defer srv.Close()

	specs := []LayerSpec{{
		ID:       "sle-adm1",
		Name:     "Province",
		NameVar:  "admin1",
		Resource: Resource{Filename: "provinces.zip", ResourceID: "res-2"},
	}}

	_, err := NewLoader().LoadAll(context.Background(), srv.URL, specs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Province")
	assert.Contains(t, err.Error(), "status 404")
}

func TestExtractShapefileRejectsArchiveWithoutShp(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "empty.zip")

	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	entry, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("no geometry here"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	_, err = extractShapefile(zipPath, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp entry")
}

func TestDownloadURL(t *testing.T) {
	r := Resource{Filename: "districts.zip", ResourceID: "res-1"}
	assert.Equal(t,
		"https://data.example.org/resource/res-1/download/districts.zip",
		DownloadURL("https://data.example.org/", r))
}
