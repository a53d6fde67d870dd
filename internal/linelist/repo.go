package linelist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"epidash/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Save stores a dataset and its case rows in one transaction,
// replacing any previous rows under the same dataset id.
func (r *Repo) Save(ctx context.Context, ds models.Dataset, ll *models.LineList) error {
	columnsJSON, err := json.Marshal(ll.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save dataset: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, name, source, columns, row_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source = excluded.source,
			columns = excluded.columns,
			row_count = excluded.row_count,
			imported_at = CURRENT_TIMESTAMP
	`, ds.ID, ds.Name, nullString(ds.Source), string(columnsJSON), ll.Len())
	if err != nil {
		return fmt.Errorf("upsert dataset: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM case_rows WHERE dataset_id = ?`, ds.ID); err != nil {
		return fmt.Errorf("clear case rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO case_rows (dataset_id, seq, fields) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range ll.Rows {
		fieldsJSON, merr := json.Marshal(row)
		if merr != nil {
			err = fmt.Errorf("marshal row %d: %w", i, merr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, ds.ID, i, string(fieldsJSON)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save dataset: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.Dataset, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, source, columns, row_count, imported_at
		FROM datasets
		WHERE id = ?
	`, id)
	return scanDataset(row)
}

// Latest returns the most recently imported dataset, or nil.
func (r *Repo) Latest(ctx context.Context) (*models.Dataset, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, source, columns, row_count, imported_at
		FROM datasets
		ORDER BY imported_at DESC
		LIMIT 1
	`)
	return scanDataset(row)
}

func (r *Repo) List(ctx context.Context) ([]models.Dataset, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, source, columns, row_count, imported_at
		FROM datasets
		ORDER BY imported_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]models.Dataset, 0)
	for rows.Next() {
		ds, err := scanDatasetRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// LoadRows rebuilds the LineList for a stored dataset.
func (r *Repo) LoadRows(ctx context.Context, ds *models.Dataset) (*models.LineList, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT fields FROM case_rows
		WHERE dataset_id = ?
		ORDER BY seq
	`, ds.ID)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	data := make([][]string, 0, ds.RowCount)
	for rows.Next() {
		var fieldsJSON string
		if err := rows.Scan(&fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var fields []string
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		data = append(data, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	return models.NewLineList(ds.Columns, data), nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete dataset: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row *sql.Row) (*models.Dataset, error) {
	ds, err := scanDatasetFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ds, err
}

func scanDatasetRows(rows *sql.Rows) (*models.Dataset, error) {
	return scanDatasetFrom(rows)
}

func scanDatasetFrom(s rowScanner) (*models.Dataset, error) {
	var (
		ds          models.Dataset
		source      sql.NullString
		columnsJSON string
	)
	if err := s.Scan(&ds.ID, &ds.Name, &source, &columnsJSON, &ds.RowCount, &ds.ImportedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	ds.Source = source.String
	if err := json.Unmarshal([]byte(columnsJSON), &ds.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	return &ds, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
