package geo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"epidash/pkg/models"
)

// Repo caches parsed layers in sqlite so a dashboard restart does not
// re-download the shapefile archives.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Save(ctx context.Context, layer models.GeoLayer, sourceURL string) error {
	joinJSON, err := json.Marshal(layer.JoinBy)
	if err != nil {
		return fmt.Errorf("marshal join_by: %w", err)
	}
	featuresJSON, err := json.Marshal(layer.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO geo_layers (id, name, name_var, join_by, features, source_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_var = excluded.name_var,
			join_by = excluded.join_by,
			features = excluded.features,
			source_url = excluded.source_url,
			fetched_at = CURRENT_TIMESTAMP
	`, layer.ID, layer.Name, layer.NameVar, string(joinJSON), string(featuresJSON), nullString(sourceURL))
	if err != nil {
		return fmt.Errorf("upsert geo layer: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.GeoLayer, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, name_var, join_by, features
		FROM geo_layers
		WHERE id = ?
	`, id)

	layer, err := scanLayer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return layer, err
}

// List returns every cached layer, features included.
func (r *Repo) List(ctx context.Context) ([]models.GeoLayer, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, name_var, join_by, features
		FROM geo_layers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list geo layers: %w", err)
	}
	defer rows.Close()

	out := make([]models.GeoLayer, 0)
	for rows.Next() {
		layer, err := scanLayer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *layer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Meta is the layer without its geometry, for listings.
type Meta struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	NameVar      string            `json:"name_var"`
	JoinBy       map[string]string `json:"join_by"`
	FeatureCount int               `json:"feature_count"`
	FetchedAt    time.Time         `json:"fetched_at"`
}

func (r *Repo) ListMeta(ctx context.Context) ([]Meta, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, name_var, join_by, features, fetched_at
		FROM geo_layers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list geo layers: %w", err)
	}
	defer rows.Close()

	out := make([]Meta, 0)
	for rows.Next() {
		var (
			m            Meta
			joinJSON     string
			featuresJSON string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.NameVar, &joinJSON, &featuresJSON, &m.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan layer meta: %w", err)
		}
		if err := json.Unmarshal([]byte(joinJSON), &m.JoinBy); err != nil {
			return nil, fmt.Errorf("decode join_by: %w", err)
		}
		var features []models.Feature
		if err := json.Unmarshal([]byte(featuresJSON), &features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		m.FeatureCount = len(features)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func scanLayer(scan func(dest ...any) error) (*models.GeoLayer, error) {
	var (
		layer        models.GeoLayer
		joinJSON     string
		featuresJSON string
	)
	if err := scan(&layer.ID, &layer.Name, &layer.NameVar, &joinJSON, &featuresJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan geo layer: %w", err)
	}
	if err := json.Unmarshal([]byte(joinJSON), &layer.JoinBy); err != nil {
		return nil, fmt.Errorf("decode join_by: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &layer.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &layer, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
