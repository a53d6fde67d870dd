package linelist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"epidash/pkg/models"
)

// Loader fetches and parses a line list from a local path or an
// HTTP(S) URL. The resource must be delimited text with a header row.
type Loader struct {
	Client *http.Client
}

func NewLoader() *Loader {
	return &Loader{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load reads the source and returns an immutable LineList. A network
// failure, a non-2xx response or malformed CSV surfaces as an error;
// there is no retry.
func (l *Loader) Load(ctx context.Context, source string) (*models.LineList, error) {
	if isURL(source) {
		return l.loadRemote(ctx, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()
	return Parse(f)
}

func (l *Loader) loadRemote(ctx context.Context, rawURL string) (*models.LineList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	ll, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return ll, nil
}

// Parse reads delimited text with a header row into a LineList.
// Column names are the trimmed header tokens; the row count equals
// the number of data lines.
func Parse(r io.Reader) (*models.LineList, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, 0, len(header))
	for _, h := range header {
		columns = append(columns, strings.TrimSpace(h))
	}
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "") {
		return nil, fmt.Errorf("empty header row")
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}

	return models.NewLineList(columns, rows), nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
