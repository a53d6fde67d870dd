package linelist

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidash/pkg/database"
	"epidash/pkg/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	// single connection so the session pragmas apply to every query
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.MigrateFrom(db, "../../docs/schema.sql"))
	return db
}

func testLineList() *models.LineList {
	return models.NewLineList(
		[]string{"district", "onset_date", "sex"},
		[][]string{
			{"Bo", "2024-03-01", "m"},
			{"Kenema", "2024-03-02", "f"},
		},
	)
}

func TestRepoSaveAndLoad(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	ds := models.Dataset{ID: "ds-1", Name: "measles 2024", Source: "http://example.org/cases.csv"}
	require.NoError(t, repo.Save(ctx, ds, testLineList()))

	got, err := repo.Get(ctx, "ds-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "measles 2024", got.Name)
	assert.Equal(t, []string{"district", "onset_date", "sex"}, got.Columns)
	assert.Equal(t, 2, got.RowCount)
	assert.False(t, got.ImportedAt.IsZero())

	ll, err := repo.LoadRows(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 2, ll.Len())
	assert.Equal(t, "Kenema", ll.Value(1, "district"))
}

func TestRepoSaveReplacesRows(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	ds := models.Dataset{ID: "ds-1", Name: "measles 2024"}
	require.NoError(t, repo.Save(ctx, ds, testLineList()))

	// re-import with one extra row under the same id
	updated := models.NewLineList(
		[]string{"district", "onset_date", "sex"},
		[][]string{
			{"Bo", "2024-03-01", "m"},
			{"Kenema", "2024-03-02", "f"},
			{"Kailahun", "2024-03-05", "f"},
		},
	)
	require.NoError(t, repo.Save(ctx, ds, updated))

	got, err := repo.Get(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.RowCount)

	ll, err := repo.LoadRows(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 3, ll.Len())
}

func TestRepoGetMissing(t *testing.T) {
	repo := NewRepo(testDB(t))

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepoLatestAndList(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty store has no latest")

	require.NoError(t, repo.Save(ctx, models.Dataset{ID: "ds-1", Name: "first"}, testLineList()))
	require.NoError(t, repo.Save(ctx, models.Dataset{ID: "ds-2", Name: "second"}, testLineList()))

	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRepoDelete(t *testing.T) {
	repo := NewRepo(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.Dataset{ID: "ds-1", Name: "first"}, testLineList()))

	deleted, err := repo.Delete(ctx, "ds-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.Get(ctx, "ds-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// case rows go with the dataset
	var n int
	require.NoError(t, repo.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM case_rows WHERE dataset_id = ?`, "ds-1").Scan(&n))
	assert.Equal(t, 0, n)

	deleted, err = repo.Delete(ctx, "ds-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
