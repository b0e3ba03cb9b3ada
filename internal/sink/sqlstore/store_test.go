package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
)

func banks(n int) *types.Table {
	t := &types.Table{Columns: []string{"Name", "MC_USD_Billion", "MC_GBP_Billion"}}
	for i := 0; i < n; i++ {
		usd := float64(100 - i)
		t.Rows = append(t.Rows, []any{fmt.Sprintf("Bank %d", i+1), usd, usd * 0.8})
	}
	return t
}

func openTest(t *testing.T, driver, dsn string) *Store {
	t.Helper()
	s, err := Open(context.Background(), driver, dsn, "Largest_banks", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dump(t *testing.T, s *Store) [][]any {
	t.Helper()
	rows, err := s.DB().Query(`SELECT "Name", "MC_USD_Billion", "MC_GBP_Billion" FROM "Largest_banks"`)
	require.NoError(t, err)
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		var name string
		var usd, gbp float64
		require.NoError(t, rows.Scan(&name, &usd, &gbp))
		out = append(out, []any{name, usd, gbp})
	}
	require.NoError(t, rows.Err())
	return out
}

func TestLoad_SQLite(t *testing.T) {
	s := openTest(t, "sqlite3", filepath.Join(t.TempDir(), "Banks.db"))

	require.NoError(t, s.Load(context.Background(), banks(10)))

	got := dump(t, s)
	require.Len(t, got, 10)
	assert.Equal(t, []any{"Bank 1", 100.0, 80.0}, got[0])
	assert.Equal(t, banks(10).Rows, got)
}

func TestLoad_TwiceReplaces(t *testing.T) {
	s := openTest(t, "sqlite3", filepath.Join(t.TempDir(), "Banks.db"))
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, banks(10)))
	once := dump(t, s)
	require.NoError(t, s.Load(ctx, banks(10)))
	twice := dump(t, s)

	assert.Equal(t, once, twice)
}

func TestLoad_ReplacesSchema(t *testing.T) {
	s := openTest(t, "sqlite3", filepath.Join(t.TempDir(), "Banks.db"))
	ctx := context.Background()

	old := &types.Table{Columns: []string{"Other"}, Rows: [][]any{{"x"}}}
	require.NoError(t, s.Load(ctx, old))
	require.NoError(t, s.Load(ctx, banks(3)))

	assert.Len(t, dump(t, s), 3)
}

func TestLoad_PureGoSQLite(t *testing.T) {
	s := openTest(t, "sqlite", filepath.Join(t.TempDir(), "Banks.db"))

	require.NoError(t, s.Load(context.Background(), banks(4)))
	assert.Len(t, dump(t, s), 4)
	assert.Equal(t, "sqlite", s.Name())
}

func TestLoad_DuckDB(t *testing.T) {
	s := openTest(t, "duckdb", "")

	require.NoError(t, s.Load(context.Background(), banks(5)))
	got := dump(t, s)
	require.Len(t, got, 5)
	assert.Equal(t, "Bank 1", got[0][0])
}

func TestLoad_NoColumns(t *testing.T) {
	s := openTest(t, "sqlite3", filepath.Join(t.TempDir(), "Banks.db"))

	err := s.Load(context.Background(), &types.Table{})

	var se *types.StoreError
	assert.True(t, errors.As(err, &se), "got %v", err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", "t", zap.NewNop())

	var se *types.StoreError
	assert.True(t, errors.As(err, &se), "got %v", err)
}
