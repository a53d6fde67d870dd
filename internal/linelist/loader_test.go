package linelist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id, district ,onset_date,age,sex
1,Bo,2024-03-01,34,m
2,Kenema,2024-03-02, 8 ,f
3,Bo,2024-03-06,61,m
`

func TestParse(t *testing.T) {
	ll, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// header tokens are trimmed
	assert.Equal(t, []string{"id", "district", "onset_date", "age", "sex"}, ll.Columns)
	assert.Equal(t, 3, ll.Len())

	// cells are trimmed too
	assert.Equal(t, "8", ll.Value(1, "age"))
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.Error(t, err, "empty input")

	_, err = Parse(strings.NewReader(" \n1\n"))
	assert.Error(t, err, "blank header")

	ragged := "a,b,c\n1,2\n"
	_, err = Parse(strings.NewReader(ragged))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	ll, err := NewLoader().Load(context.Background(), srv.URL+"/linelist.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, ll.Len())
	assert.Equal(t, []string{"Bo", "Kenema", "Bo"}, ll.Values("district"))
}

func TestLoadRemoteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewLoader().Load(context.Background(), srv.URL+"/linelist.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLoadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ll, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, ll.Len())

	_, err = NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
